package backup

import (
	"context"
	"encoding/base64"
	"io"
	"path"
	"qcledger/internal/blob"
	"qcledger/pkg/domain"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleData() domain.ImportData {
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	png := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	return domain.ImportData{
		Objects: []domain.ConstructionObject{{ID: "o1", Name: "Дом"}},
		Certificates: []domain.Certificate{{
			ID:                   "c1234567890",
			Number:               "RU Д-1/2",
			ValidUntil:           "2030-01-01",
			Materials:            []string{"арматура"},
			ConstructionObjectID: "o1",
			Files: []domain.CertificateFile{
				{ID: "f1", Type: "application/pdf", Name: "скан.pdf", Data: pdf},
				{ID: "f2", Type: "image/png", Name: "скан.pdf", Data: png},
			},
		}},
		Template: "dA==",
	}
}

func TestWriteReadTreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	data := sampleData()
	if err := WriteTree(ctx, store, "2024-10-01", data); err != nil {
		t.Fatalf("write: %v", err)
	}

	folder := path.Join("2024-10-01", CertificatesDir, FolderName(data.Certificates[0]))
	if FolderName(data.Certificates[0]) != "RU_Д-1_2_c1234567" {
		t.Fatalf("unexpected folder %q", FolderName(data.Certificates[0]))
	}
	_, body, err := store.Get(ctx, path.Join(folder, "скан.pdf"))
	if err != nil {
		t.Fatalf("expected decoded file: %v", err)
	}
	raw, _ := io.ReadAll(body)
	_ = body.Close()
	if string(raw) != "%PDF-1.4" {
		t.Fatalf("unexpected payload %q", raw)
	}
	if _, _, err := store.Get(ctx, path.Join(folder, "скан_2.pdf")); err != nil {
		t.Fatalf("expected duplicate name disambiguated: %v", err)
	}

	_, body, err = store.Get(ctx, path.Join("2024-10-01", RestoreFile))
	if err != nil {
		t.Fatalf("restore document: %v", err)
	}
	restore, err := DecodeFlat(body)
	_ = body.Close()
	if err != nil {
		t.Fatalf("decode restore document: %v", err)
	}
	if restore.Certificates[0].Files[0].Data != "" {
		t.Fatalf("file payloads must live outside the restore document")
	}

	got, err := ReadTree(ctx, store, "2024-10-01")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Fatalf("tree round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTreeAddsStrayCertificateFolders(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	data := sampleData()
	if err := WriteTree(ctx, store, "", data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteTree(ctx, store, "", domain.ImportData{Objects: data.Objects}); err != nil {
		t.Fatalf("rewrite restore document: %v", err)
	}
	got, err := ReadTree(ctx, store, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Certificates) != 1 || got.Certificates[0].ID != "c1234567890" || len(got.Certificates[0].Files) != 2 {
		t.Fatalf("expected certificate rebuilt from its folder, got %+v", got.Certificates)
	}
	if got.Certificates[0].ConstructionObjectID != "" {
		t.Fatalf("folder manifests carry no scope")
	}
}

func TestReadTreeMissingRestoreFile(t *testing.T) {
	if _, err := ReadTree(context.Background(), blob.NewMemory(), "none"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteTreeRejectsBadPayload(t *testing.T) {
	data := domain.ImportData{Certificates: []domain.Certificate{{
		ID: "c1", Number: "1", Files: []domain.CertificateFile{{ID: "f", Name: "x", Data: "data:text/plain,hello"}},
	}}}
	if err := WriteTree(context.Background(), blob.NewMemory(), "", data); err == nil {
		t.Fatalf("expected unsupported data url error")
	}
}

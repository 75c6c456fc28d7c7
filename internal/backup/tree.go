package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"qcledger/internal/blob"
	"qcledger/pkg/domain"
	"strings"
	"unicode"
)

// Archive tree layout.
const (
	RestoreFile       = "backup_restore.json"
	CertificatesDir   = "certificates"
	CertificateInfo   = "info.json"
	jsonContentType   = "application/json"
	binaryContentType = "application/octet-stream"
)

// certificateInfo is the per-certificate manifest stored next to its files.
type certificateInfo struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	ValidUntil string     `json:"validUntil"`
	Materials  []string   `json:"materials"`
	Files      []fileInfo `json:"files"`
}

type fileInfo struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	DataURL bool   `json:"dataUrl,omitempty"`
}

// WriteTree stores data under prefix: the restore document with certificate
// file payloads stripped, and one folder per active certificate holding its
// manifest and decoded files.
func WriteTree(ctx context.Context, store blob.Store, prefix string, data domain.ImportData) error {
	stripped := data
	stripped.Certificates = make([]domain.Certificate, 0, len(data.Certificates))
	for _, cert := range data.Certificates {
		if err := writeCertificate(ctx, store, prefix, cert); err != nil {
			return err
		}
		cert = cert.Clone()
		for i := range cert.Files {
			cert.Files[i].Data = ""
		}
		stripped.Certificates = append(stripped.Certificates, cert)
	}
	if data.Certificates == nil {
		stripped.Certificates = nil
	}
	var buf bytes.Buffer
	if err := EncodeFlat(&buf, stripped); err != nil {
		return err
	}
	if _, err := store.Put(ctx, path.Join(prefix, RestoreFile), &buf, blob.PutOptions{ContentType: jsonContentType}); err != nil {
		return fmt.Errorf("write %s: %w", RestoreFile, err)
	}
	return nil
}

func writeCertificate(ctx context.Context, store blob.Store, prefix string, cert domain.Certificate) error {
	dir := path.Join(prefix, CertificatesDir, FolderName(cert))
	info := certificateInfo{
		ID:         cert.ID,
		Number:     cert.Number,
		ValidUntil: cert.ValidUntil,
		Materials:  cert.Materials,
		Files:      make([]fileInfo, 0, len(cert.Files)),
	}
	used := make(map[string]int)
	for _, file := range cert.Files {
		payload, dataURL, err := decodePayload(file.Data)
		if err != nil {
			return fmt.Errorf("certificate %s file %s: %w", cert.Number, file.Name, err)
		}
		name := fileName(file, used)
		if _, err := store.Put(ctx, path.Join(dir, name), bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType(file.Type),
			Metadata:    map[string]string{"certificate": cert.ID, "file": file.ID},
		}); err != nil {
			return fmt.Errorf("write certificate file: %w", err)
		}
		info.Files = append(info.Files, fileInfo{ID: file.ID, Type: file.Type, Name: file.Name, Path: name, DataURL: dataURL})
	}
	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode certificate info: %w", err)
	}
	if _, err := store.Put(ctx, path.Join(dir, CertificateInfo), bytes.NewReader(encoded), blob.PutOptions{ContentType: jsonContentType}); err != nil {
		return fmt.Errorf("write certificate info: %w", err)
	}
	return nil
}

// ReadTree reconstructs the data written by WriteTree. Certificate folders
// without an entry in the restore document are added as certificates.
func ReadTree(ctx context.Context, store blob.Store, prefix string) (domain.ImportData, error) {
	_, body, err := store.Get(ctx, path.Join(prefix, RestoreFile))
	if err != nil {
		return domain.ImportData{}, fmt.Errorf("read %s: %w", RestoreFile, err)
	}
	data, decodeErr := DecodeFlat(body)
	_ = body.Close()
	var invalid domain.ImportValidationError
	if decodeErr != nil && !errors.As(decodeErr, &invalid) {
		return domain.ImportData{}, decodeErr
	}

	infos, err := store.List(ctx, path.Join(prefix, CertificatesDir)+"/")
	if err != nil {
		return domain.ImportData{}, fmt.Errorf("list certificates: %w", err)
	}
	index := make(map[string]int, len(data.Certificates))
	for i, cert := range data.Certificates {
		index[cert.ID] = i
	}
	for _, entry := range infos {
		if path.Base(entry.Key) != CertificateInfo {
			continue
		}
		cert, err := readCertificate(ctx, store, entry.Key)
		if err != nil {
			return domain.ImportData{}, err
		}
		if i, ok := index[cert.ID]; ok {
			merged := data.Certificates[i]
			merged.Files = cert.Files
			data.Certificates[i] = merged
			continue
		}
		if data.Certificates == nil {
			data.Certificates = []domain.Certificate{}
		}
		index[cert.ID] = len(data.Certificates)
		data.Certificates = append(data.Certificates, cert)
	}
	return data, decodeErr
}

func readCertificate(ctx context.Context, store blob.Store, infoKey string) (domain.Certificate, error) {
	raw, err := readAll(ctx, store, infoKey)
	if err != nil {
		return domain.Certificate{}, err
	}
	var info certificateInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return domain.Certificate{}, fmt.Errorf("decode %s: %w", infoKey, err)
	}
	cert := domain.Certificate{
		ID:         info.ID,
		Number:     info.Number,
		ValidUntil: info.ValidUntil,
		Materials:  info.Materials,
		Files:      make([]domain.CertificateFile, 0, len(info.Files)),
	}
	if cert.Materials == nil {
		cert.Materials = []string{}
	}
	dir := path.Dir(infoKey)
	for _, file := range info.Files {
		payload, err := readAll(ctx, store, path.Join(dir, file.Path))
		if err != nil {
			return domain.Certificate{}, err
		}
		cert.Files = append(cert.Files, domain.CertificateFile{
			ID:   file.ID,
			Type: file.Type,
			Name: file.Name,
			Data: encodePayload(payload, file.Type, file.DataURL),
		})
	}
	return cert, nil
}

func readAll(ctx context.Context, store blob.Store, key string) ([]byte, error) {
	_, body, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

// decodePayload accepts plain base64 or a base64 data URL.
func decodePayload(data string) ([]byte, bool, error) {
	dataURL := false
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 || !strings.HasSuffix(data[:comma], ";base64") {
			return nil, false, errors.New("unsupported data url")
		}
		data = data[comma+1:]
		dataURL = true
	}
	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, false, err
	}
	return payload, dataURL, nil
}

func encodePayload(payload []byte, mime string, dataURL bool) string {
	encoded := base64.StdEncoding.EncodeToString(payload)
	if !dataURL {
		return encoded
	}
	return "data:" + contentType(mime) + ";base64," + encoded
}

func contentType(mime string) string {
	if mime == "" {
		return binaryContentType
	}
	return mime
}

// FolderName is the certificate's folder under certificates/: its number made
// path-safe, suffixed with the id prefix to keep folders distinct.
func FolderName(cert domain.Certificate) string {
	id := cert.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := sanitize(cert.Number)
	if name == "" {
		return id
	}
	return name + "_" + id
}

func fileName(file domain.CertificateFile, used map[string]int) string {
	name := sanitize(file.Name)
	if name == "" || name == CertificateInfo || strings.HasSuffix(name, ".meta") {
		name = "file_" + file.ID
	}
	used[name]++
	if n := used[name]; n > 1 {
		ext := path.Ext(name)
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	return name
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

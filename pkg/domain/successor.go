package domain

import "fmt"

// SuccessorDescription renders the next-work text of an act pointing at next.
func SuccessorDescription(next Act) string {
	if next.WorkName == "" {
		return fmt.Sprintf("Акт №%s", next.Number)
	}
	return fmt.Sprintf("%s (акт №%s)", next.WorkName, next.Number)
}

// DeletedSuccessorDescription renders the next-work text left behind when the
// referenced act is deleted.
func DeletedSuccessorDescription(number string) string {
	return fmt.Sprintf("Акт №%s удалён", number)
}

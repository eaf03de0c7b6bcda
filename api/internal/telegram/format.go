package telegram

import (
	"fmt"
	"strings"

	"afval-classifier/api/internal/afval/types"
)

// maxLines bounds how many categories a reply lists.
const maxLines = 5

// FormatResult renders a ranked list as numbered lines with percentages.
func FormatResult(res types.CombinedResult) string {
	var b strings.Builder
	b.WriteString("♻️ Resultaat:\n")
	for i, sc := range res {
		if i == maxLines {
			fmt.Fprintf(&b, "… en %d andere\n", len(res)-maxLines)
			break
		}
		fmt.Fprintf(&b, "%d. %s: %.1f%%\n", i+1, sc.Category, sc.Confidence*100)
	}
	return b.String()
}

package diff

import (
	"fmt"
	"strings"
)

// RenderDiffSummary renders a changeset for the terminal.
func RenderDiffSummary(cs *ChangeSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Catalogue %s -> %s: %d new, %d updated, %d removed, %d possible renames, %d unchanged\n",
		versionOrUnknown(cs.OldVersion), versionOrUnknown(cs.NewVersion),
		len(cs.New), len(cs.Updated), len(cs.Removed), len(cs.PossibleRenames), cs.Unchanged)

	for _, m := range cs.New {
		fmt.Fprintf(&b, "  + %s (%s, %s)\n", m.Key, m.Model.Provider, m.Model.Hosting)
	}
	for _, u := range cs.Updated {
		fmt.Fprintf(&b, "  ~ %s\n", u.Key)
		for _, c := range u.Changes {
			fmt.Fprintf(&b, "      %s: %s -> %s\n", c.Field, formatValue(c.OldValue), formatValue(c.NewValue))
		}
	}
	for _, m := range cs.Removed {
		fmt.Fprintf(&b, "  - %s\n", m.Key)
	}
	for _, rp := range cs.PossibleRenames {
		fmt.Fprintf(&b, "  ? %s -> %s (%s)\n", rp.OldKey, rp.NewKey, rp.Reason)
	}

	return b.String()
}

// RenderPRBody renders a changeset as a GitHub pull request description.
func RenderPRBody(cs *ChangeSet) string {
	var b strings.Builder

	b.WriteString("## Model catalogue update\n\n")
	fmt.Fprintf(&b, "Version: `%s` → `%s`\n\n", versionOrUnknown(cs.OldVersion), versionOrUnknown(cs.NewVersion))

	b.WriteString("| | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| New | %d |\n", len(cs.New))
	fmt.Fprintf(&b, "| Updated | %d |\n", len(cs.Updated))
	fmt.Fprintf(&b, "| Newly deprecated | %d |\n", len(cs.Deprecated()))
	fmt.Fprintf(&b, "| Unchanged | %d |\n\n", cs.Unchanged)

	if len(cs.New) > 0 {
		b.WriteString("### New models\n\n")
		b.WriteString("| Key | Provider | Hosting | Context | Chat |\n|---|---|---|---|---|\n")
		for _, m := range cs.New {
			fmt.Fprintf(&b, "| `%s` | %s | %s | %d | %t |\n",
				m.Key, m.Model.Provider, m.Model.Hosting, m.Model.ContextWindow, m.Model.AllowChat)
		}
		b.WriteString("\n")
	}

	if len(cs.Updated) > 0 {
		b.WriteString("### Updated models\n\n")
		b.WriteString("| Key | Field | Old | New |\n|---|---|---|---|\n")
		for _, u := range cs.Updated {
			for _, c := range u.Changes {
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", u.Key, c.Field, formatValue(c.OldValue), formatValue(c.NewValue))
			}
		}
		b.WriteString("\n")
	}

	if v := cs.Violations(); len(v) > 0 {
		b.WriteString("### Key stability violations\n\n")
		for _, line := range v {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "(none)"
	case float64:
		return fmt.Sprintf("%g", val)
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func versionOrUnknown(v string) string {
	if v == "" {
		return "unversioned"
	}
	return v
}

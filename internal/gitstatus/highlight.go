package gitstatus

// Category is the semantic highlight class of a status code.
type Category string

// Highlight categories. CategoryNone means the code carries nothing worth
// highlighting.
const (
	CategoryNone      Category = ""
	CategoryAdded     Category = "added"
	CategoryModified  Category = "modified"
	CategoryDeleted   Category = "deleted"
	CategoryRenamed   Category = "renamed"
	CategoryCopied    Category = "copied"
	CategoryUntracked Category = "untracked"
)

// UntrackedCode is the porcelain code for files git does not track.
const UntrackedCode = "??"

// HighlightFor maps a status code to its category. The worktree column wins
// over the index column, and "??" wins over both.
func HighlightFor(code string) Category {
	category := CategoryNone

	if len(code) > 0 {
		switch code[0] {
		case 'A':
			category = CategoryAdded
		case 'M':
			category = CategoryModified
		case 'D':
			category = CategoryDeleted
		case 'R':
			category = CategoryRenamed
		case 'C':
			category = CategoryCopied
		}
	}

	if len(code) > 1 {
		switch code[1] {
		case 'M':
			category = CategoryModified
		case 'D':
			category = CategoryDeleted
		}
	}

	if code == UntrackedCode {
		category = CategoryUntracked
	}

	return category
}

// String returns the category name, or "none".
func (c Category) String() string {
	if c == CategoryNone {
		return "none"
	}
	return string(c)
}

package medication

import "fmt"

// Status is the most recent dose outcome of a medication.
type Status int

const (
	StatusPending Status = iota
	StatusTaken
	StatusSkipped
	StatusMissed

	statusCount
)

var statusTokens = [...]string{
	StatusPending: "pending",
	StatusTaken:   "taken",
	StatusSkipped: "skipped",
	StatusMissed:  "missed",
}

// Every status needs a token.
var _ [int(statusCount)]struct{} = [len(statusTokens)]struct{}{}

func (s Status) String() string {
	if s < 0 || s >= statusCount {
		return statusTokens[StatusPending]
	}
	return statusTokens[s]
}

// ParseStatus accepts only known tokens.
func ParseStatus(token string) (Status, error) {
	for i, t := range statusTokens {
		if t == token {
			return Status(i), nil
		}
	}
	return StatusPending, fmt.Errorf("%w: %q", ErrInvalidStatus, token)
}

// statusFromToken decodes stored data. Unknown or missing tokens read as pending.
func statusFromToken(token string) Status {
	s, err := ParseStatus(token)
	if err != nil {
		return StatusPending
	}
	return s
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

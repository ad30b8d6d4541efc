// Package safety flags user messages that call for support resources.
package safety

import (
	"strings"
)

// Flags reports which concerns a message raised.
type Flags struct {
	Abuse   bool
	Suicide bool
}

var (
	abusePhrases   = []string{"abuse", "hit me", "hurt me"}
	suicidePhrases = []string{"kill myself", "don't want to live", "don’t want to live", "suicide", "end my life"}
)

// Detect scans text for crisis phrases, case-insensitively.
func Detect(text string) Flags {
	t := strings.ToLower(text)
	return Flags{
		Abuse:   containsAny(t, abusePhrases),
		Suicide: containsAny(t, suicidePhrases),
	}
}

// Any returns true if at least one concern was raised.
func (f Flags) Any() bool {
	return f.Abuse || f.Suicide
}

// Kinds lists the raised concerns as metric/log labels.
func (f Flags) Kinds() []string {
	var kinds []string
	if f.Abuse {
		kinds = append(kinds, "abuse")
	}
	if f.Suicide {
		kinds = append(kinds, "suicide")
	}
	return kinds
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Resource is a support service a user can reach out to.
type Resource struct {
	Region  string
	Contact string
}

// Resources is the static list shown alongside flagged messages.
var Resources = []Resource{
	{Region: "Pakistan", Contact: "1099 (Helpline)"},
	{Region: "International", Contact: "https://www.befrienders.org/"},
}

// ResourcesMessage renders Resources as a single chat notice.
func ResourcesMessage() string {
	var b strings.Builder
	b.WriteString("You are not alone. If you're experiencing abuse or thoughts of harming yourself, please reach out to a local support service:")
	for _, r := range Resources {
		b.WriteString("\n")
		b.WriteString(r.Region)
		b.WriteString(": ")
		b.WriteString(r.Contact)
	}
	return b.String()
}

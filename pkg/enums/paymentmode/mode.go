package paymentmode

import "strings"

type Mode struct {
	Name string
}

func (m Mode) Code() string {
	return m.Name
}

func (m Mode) Label() string {
	if m.Name == "" {
		return ""
	}
	return strings.ToUpper(m.Name[:1]) + m.Name[1:]
}

type Enum struct {
	Cash   Mode
	Online Mode
	Split  Mode
}

var Modes = Enum{
	Cash:   Mode{Name: "cash"},
	Online: Mode{Name: "online"},
	Split:  Mode{Name: "split"},
}

var All = []Mode{
	Modes.Cash,
	Modes.Online,
	Modes.Split,
}

// ByName returns the payment mode for a given name, or nil if not found
func ByName(name string) *Mode {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range All {
		if m.Name == name {
			return &m
		}
	}
	return nil
}

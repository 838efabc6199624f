package cookstage

import "strings"

// Stage is the kitchen-local progress of a ticket.
type Stage struct {
	Name  string
	Order int
}

func (s Stage) Code() string {
	return s.Name
}

func (s Stage) Label() string {
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Next reports whether s is the stage immediately after prev.
func (s Stage) Next(prev Stage) bool {
	return s.Order == prev.Order+1
}

// Terminal reports whether the ticket has left the board for good.
func (s Stage) Terminal() bool {
	return s.Name == Stages.Cancelled.Name
}

type Enum struct {
	New       Stage
	Cooking   Stage
	Ready     Stage
	Cancelled Stage
}

var Stages = Enum{
	New:       Stage{Name: "new", Order: 0},
	Cooking:   Stage{Name: "cooking", Order: 1},
	Ready:     Stage{Name: "ready", Order: 2},
	Cancelled: Stage{Name: "cancelled", Order: 9},
}

var All = []Stage{
	Stages.New,
	Stages.Cooking,
	Stages.Ready,
	Stages.Cancelled,
}

// Active lists the stages shown on the kitchen board.
var Active = []Stage{
	Stages.New,
	Stages.Cooking,
	Stages.Ready,
}

// ByName returns the stage for a given name, or nil if not found
func ByName(name string) *Stage {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

package chat

type GroupID string

// Group is a topic channel known at build time.
type Group struct {
	ID          GroupID
	Label       string
	Description string
}

const DefaultGroup GroupID = "general"

var catalog = []Group{
	{ID: "general", Label: "General", Description: "Everything and nothing"},
	{ID: "tech", Label: "Tech", Description: "Code, gadgets and infrastructure"},
	{ID: "random", Label: "Random", Description: "Off-topic chatter"},
}

// Groups returns the fixed catalog in display order.
func Groups() []Group {
	out := make([]Group, len(catalog))
	copy(out, catalog)
	return out
}

func LookupGroup(id GroupID) (Group, bool) {
	for _, g := range catalog {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

func IsKnownGroup(id GroupID) bool {
	_, ok := LookupGroup(id)
	return ok
}

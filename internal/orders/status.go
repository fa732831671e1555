package orders

type Status string

const (
	StatusNotAccepted Status = "not_accepted" // draft, just built from a cart
	StatusPayment     Status = "payment"      // shipping confirmed, awaiting payment
	StatusAccepted    Status = "accepted"     // payment recorded
)

var validNext = map[Status]map[Status]bool{
	StatusNotAccepted: {StatusPayment: true},
	StatusPayment:     {StatusAccepted: true},
	StatusAccepted:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// SweepScope selects whose draft orders are evicted by the sweep.
type SweepScope int

const (
	SweepUser   SweepScope = iota // only the requesting user's drafts
	SweepGlobal                   // every user's drafts
)

func ParseSweepScope(s string) SweepScope {
	if s == "global" {
		return SweepGlobal
	}
	return SweepUser
}

func (s SweepScope) String() string {
	if s == SweepGlobal {
		return "global"
	}
	return "user"
}

package types

// Channel identifies the intake form an event originated from.
type Channel string

const (
	ChannelEvangelism     Channel = "evangelism"
	ChannelFirstTimer     Channel = "first_timer"
	ChannelReturner       Channel = "returner"
	ChannelProgramSession Channel = "program_session"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEvangelism, ChannelFirstTimer, ChannelReturner, ChannelProgramSession:
		return true
	}
	return false
}

// ImpliedStatus returns the minimum member status an event from this channel
// implies. ProgramSession events never move status, so ok is false.
func (c Channel) ImpliedStatus() (Status, bool) {
	switch c {
	case ChannelEvangelism:
		return StatusEvangelismContact, true
	case ChannelFirstTimer:
		return StatusFirstTimer, true
	case ChannelReturner:
		return StatusReturner, true
	default:
		return "", false
	}
}

// Status is the member pipeline stage. Ordering matters: a person only ever
// moves forward through these.
type Status string

const (
	StatusEvangelismContact Status = "Evangelism Contact"
	StatusFirstTimer        Status = "First Timer"
	StatusReturner          Status = "Returner"
	StatusMember            Status = "Member"
)

var statusRank = map[Status]int{
	StatusEvangelismContact: 0,
	StatusFirstTimer:        1,
	StatusReturner:          2,
	StatusMember:            3,
}

func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// MaxStatus returns the later of two stages.
func MaxStatus(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

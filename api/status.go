package api

// Status is a record state as declared by the backend.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusReplied   Status = "REPLIED"
	StatusClosed    Status = "CLOSED"
	StatusPending   Status = "PENDING"
	StatusReviewed  Status = "REVIEWED"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusApproved  Status = "APPROVED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusActive    Status = "ACTIVE"
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

// Workflow is an ordered status enum with its allowed transitions. The
// backend is authoritative; the portal only uses it to offer actions.
type Workflow struct {
	states []Status
	next   map[Status][]Status
}

func newWorkflow(states []Status, next map[Status][]Status) *Workflow {
	return &Workflow{states: states, next: next}
}

// States returns the declared statuses in display order.
func (w *Workflow) States() []Status {
	return w.states
}

// Next returns the statuses reachable from s.
func (w *Workflow) Next(s Status) []Status {
	return w.next[s]
}

// Allows reports whether from -> to is a declared transition.
func (w *Workflow) Allows(from, to Status) bool {
	for _, s := range w.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Initial returns the first declared status.
func (w *Workflow) Initial() Status {
	return w.states[0]
}

// Valid reports whether s is one of the declared statuses.
func (w *Workflow) Valid(s Status) bool {
	for _, st := range w.states {
		if st == s {
			return true
		}
	}
	return false
}

var (
	ContactWorkflow = newWorkflow(
		[]Status{StatusNew, StatusReplied, StatusClosed},
		map[Status][]Status{
			StatusNew:     {StatusReplied, StatusClosed},
			StatusReplied: {StatusClosed},
		},
	)
	JobWorkflow = newWorkflow(
		[]Status{StatusPending, StatusReviewed, StatusAccepted, StatusRejected},
		map[Status][]Status{
			StatusPending:  {StatusReviewed, StatusRejected},
			StatusReviewed: {StatusAccepted, StatusRejected},
		},
	)
	PartnershipWorkflow = newWorkflow(
		[]Status{StatusPending, StatusApproved, StatusRejected},
		map[Status][]Status{
			StatusPending: {StatusApproved, StatusRejected},
		},
	)
	AppointmentWorkflow = newWorkflow(
		[]Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled},
		map[Status][]Status{
			StatusPending:   {StatusConfirmed, StatusCancelled},
			StatusConfirmed: {StatusCompleted, StatusCancelled},
		},
	)
	SponsorshipWorkflow = newWorkflow(
		[]Status{StatusActive, StatusCompleted, StatusClosed},
		map[Status][]Status{
			StatusActive:    {StatusCompleted, StatusClosed},
			StatusCompleted: {StatusClosed},
		},
	)
	PostWorkflow = newWorkflow(
		[]Status{StatusDraft, StatusPublished},
		map[Status][]Status{
			StatusDraft:     {StatusPublished},
			StatusPublished: {StatusDraft},
		},
	)
)

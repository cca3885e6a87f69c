package parking

// Form is the attendant's input and display state shared by the shells.
type Form struct {
	EntryIdentifier string
	ExitIdentifier  string
	Ticket          *Ticket
}

func (f *Form) ClearTicket() {
	f.Ticket = nil
}

package resolver

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
)

// ContactMode is the state of contact entry for the selected client.
type ContactMode string

const (
	// ContactModeNew means the user types a new contact.
	ContactModeNew ContactMode = "new"
	// ContactModeExisting means an existing contact populated the fields.
	ContactModeExisting ContactMode = "existing"
	// ContactModeAwaitingSelection means the client has several contacts and
	// none has been chosen yet.
	ContactModeAwaitingSelection ContactMode = "awaiting_selection"
)

// ErrNoSuchContact is returned when Choose names a contact the client lacks.
var ErrNoSuchContact = eris.New("resolver: contact not found on selected client")

// ContactSelection tracks which contact fills the contact fields.
//
//	0 contacts  -> new
//	1 contact   -> existing (auto-filled)
//	2+ contacts -> awaiting_selection until Choose
//
// NewContact switches to new mode from any state and clears the fields.
type ContactSelection struct {
	mode    ContactMode
	fields  model.Contact
	options []model.Contact
}

// NewContactSelection starts in new-contact mode with empty fields, the state
// used when no existing client is selected.
func NewContactSelection() *ContactSelection {
	return &ContactSelection{mode: ContactModeNew}
}

// SelectClient applies the disambiguation policy for client's contacts.
func SelectClient(client model.Client) *ContactSelection {
	s := &ContactSelection{options: client.Contacts}
	switch len(client.Contacts) {
	case 0:
		s.mode = ContactModeNew
	case 1:
		s.mode = ContactModeExisting
		s.fields = client.Contacts[0]
	default:
		s.mode = ContactModeAwaitingSelection
	}
	return s
}

// Mode returns the current state.
func (s *ContactSelection) Mode() ContactMode { return s.mode }

// Options returns the client's contacts available for selection.
func (s *ContactSelection) Options() []model.Contact { return s.options }

// Fields returns the current contact field values.
func (s *ContactSelection) Fields() model.Contact { return s.fields }

// Choose selects the contact with id and fills the fields from it.
func (s *ContactSelection) Choose(id string) error {
	for _, c := range s.options {
		if c.ID == id {
			s.mode = ContactModeExisting
			s.fields = c
			return nil
		}
	}
	return eris.Wrapf(ErrNoSuchContact, "contact %s", id)
}

// NewContact switches to new-contact entry and clears any filled fields.
func (s *ContactSelection) NewContact() {
	s.mode = ContactModeNew
	s.fields = model.Contact{}
}

// Edit overwrites the editable fields. Editing is only meaningful in new
// mode; editing an existing contact detaches it from its record.
func (s *ContactSelection) Edit(c model.Contact) {
	c.ID = ""
	s.mode = ContactModeNew
	s.fields = c
}

// Contact returns the resolved contact. ok is false while a selection is
// still pending.
func (s *ContactSelection) Contact() (model.Contact, bool) {
	if s.mode == ContactModeAwaitingSelection {
		return model.Contact{}, false
	}
	return s.fields, true
}

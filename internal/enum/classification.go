package enum

// AddressClassification describes what kind of mailbox an accepted address belongs to.
type AddressClassification string

const (
	AddressOK              AddressClassification = "ok"
	AddressRoleAccount     AddressClassification = "role_account"
	AddressSystemGenerated AddressClassification = "system_generated"
	AddressFreeAccount     AddressClassification = "free_account"
)

func (t AddressClassification) String() string {
	return string(t)
}

type ConfirmationResult string

const (
	ConfirmationSent    ConfirmationResult = "sent"
	ConfirmationFailed  ConfirmationResult = "failed"
	ConfirmationQueued  ConfirmationResult = "queued"
	ConfirmationSkipped ConfirmationResult = "skipped"
)

func (t ConfirmationResult) String() string {
	return string(t)
}

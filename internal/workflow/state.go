// Package workflow holds the state machine that drives invoice creation from
// the first prompt to the last email.
package workflow

// State is a step of the invoice creation flow.
type State string

const (
	StateSelectingCreditMemo  State = "SELECTING_CREDIT_MEMO"
	StateSelectingCustomer    State = "SELECTING_CUSTOMER"
	StateSelectingTasks       State = "SELECTING_TASKS"
	StateReviewingSummary     State = "REVIEWING_SUMMARY"
	StateCheckingDuplicates   State = "CHECKING_DUPLICATES"
	StateConfirmingGeneration State = "CONFIRMING_GENERATION"
	StateGenerating           State = "GENERATING"
	StateNumbering            State = "NUMBERING"
	StateRendering            State = "RENDERING"
	StateUploadingCopy        State = "UPLOADING_COPY"
	StateRecordingLedger      State = "RECORDING_LEDGER"
	StateSendingCustomerEmail State = "SENDING_CUSTOMER_EMAIL"
	StateSendingInternalCopy  State = "SENDING_INTERNAL_COPY"
	StateDone                 State = "DONE"
	StateCancelled            State = "CANCELLED"
)

var validStates = map[State]bool{
	StateSelectingCreditMemo:  true,
	StateSelectingCustomer:    true,
	StateSelectingTasks:       true,
	StateReviewingSummary:     true,
	StateCheckingDuplicates:   true,
	StateConfirmingGeneration: true,
	StateGenerating:           true,
	StateNumbering:            true,
	StateRendering:            true,
	StateUploadingCopy:        true,
	StateRecordingLedger:      true,
	StateSendingCustomerEmail: true,
	StateSendingInternalCopy:  true,
	StateDone:                 true,
	StateCancelled:            true,
}

var terminalStates = map[State]bool{
	StateDone:      true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state belongs to the invoice flow
func (s State) IsValid() bool {
	return validStates[s]
}

// Trigger moves the flow from one state to another.
type Trigger string

const (
	// TriggerNext advances to the following step.
	TriggerNext Trigger = "NEXT"
	// TriggerSkip passes over the following optional step.
	TriggerSkip Trigger = "SKIP"
	// TriggerReselect returns to task selection.
	TriggerReselect Trigger = "RESELECT"
	// TriggerFinish ends the flow once the invoice is recorded.
	TriggerFinish Trigger = "FINISH"
	// TriggerCancel abandons the flow on quit or interrupt.
	TriggerCancel Trigger = "CANCEL"
)

func (t Trigger) String() string {
	return string(t)
}

package workflow

// happyPath lists the states an invoice passes through when every optional
// step is taken.
var happyPath = []State{
	StateSelectingCreditMemo,
	StateSelectingCustomer,
	StateSelectingTasks,
	StateReviewingSummary,
	StateCheckingDuplicates,
	StateConfirmingGeneration,
	StateGenerating,
	StateNumbering,
	StateRendering,
	StateUploadingCopy,
	StateRecordingLedger,
	StateSendingCustomerEmail,
	StateSendingInternalCopy,
	StateDone,
}

// NewInvoiceFlow builds the invoice creation machine in its initial state.
func NewInvoiceFlow() *Machine {
	b := NewBuilder()

	for i := 0; i < len(happyPath)-1; i++ {
		b.Configure(happyPath[i]).
			Permit(TriggerNext, happyPath[i+1]).
			Permit(TriggerCancel, StateCancelled)
	}

	// Declining a duplicate override or asking to adjust goes back to selection.
	b.Configure(StateCheckingDuplicates).Permit(TriggerReselect, StateSelectingTasks)
	b.Configure(StateConfirmingGeneration).Permit(TriggerReselect, StateSelectingTasks)

	// Optional steps.
	b.Configure(StateRendering).Permit(TriggerSkip, StateRecordingLedger)
	b.Configure(StateRecordingLedger).
		Permit(TriggerSkip, StateSendingInternalCopy).
		Permit(TriggerFinish, StateDone)
	b.Configure(StateSendingCustomerEmail).Permit(TriggerFinish, StateDone)

	return b.Build(StateSelectingCreditMemo)
}

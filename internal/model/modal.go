package model

// ModalKind discriminates the shared "current record" slot the edit,
// view and delete modals contend for. A single union makes the
// three-booleans-plus-one-record invalid states unrepresentable.
type ModalKind string

const (
	ModalNone     ModalKind = "none"
	ModalViewing  ModalKind = "viewing"
	ModalEditing  ModalKind = "editing"
	ModalDeleting ModalKind = "deleting"
)

type ModalState struct {
	Kind   ModalKind `json:"kind"`
	Record *ViewRow  `json:"record,omitempty"`
}

func ClosedModal() ModalState {
	return ModalState{Kind: ModalNone}
}

func Viewing(r *ViewRow) ModalState {
	return ModalState{Kind: ModalViewing, Record: r}
}

func Editing(r *ViewRow) ModalState {
	return ModalState{Kind: ModalEditing, Record: r}
}

func Deleting(r *ViewRow) ModalState {
	return ModalState{Kind: ModalDeleting, Record: r}
}

// Close drops both the kind and the record together so a stale record
// can never leak into the next modal.
func (m *ModalState) Close() {
	m.Kind = ModalNone
	m.Record = nil
}

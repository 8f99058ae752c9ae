package model

// Photo is a binary image attachment owned by exactly one draft.
type Photo struct {
	ID              string `json:"id"`
	DraftID         string `json:"draft_id"`
	Blob            []byte `json:"-"`
	Thumb           []byte `json:"-"`
	MIME            string `json:"mime"`
	Size            int64  `json:"size"`
	Checksum        string `json:"checksum"`
	CreatedAt       int64  `json:"created_at"` // epoch milliseconds
	SelectedForList bool   `json:"selected_for_list"`
}

package dto

// LogDeathRequest represents a player death report
type LogDeathRequest struct {
	AreaID string `json:"area_id" binding:"required"`
}

// LogDeathResponse represents the acknowledgement of a death report
type LogDeathResponse struct {
	Message       string  `json:"message"`
	AreaID        string  `json:"area_id"`
	NewDeathCount float64 `json:"new_death_count"`
}

// DreadLevelResponse represents the dread level of a single area
type DreadLevelResponse struct {
	AreaID     string `json:"area_id"`
	DreadLevel int    `json:"dread_level"`
}

// ElevatedDreadArea represents one area with a non-zero dread level
type ElevatedDreadArea struct {
	AreaID     string `json:"area_id"`
	DreadLevel int    `json:"dread_level"`
}

// ElevatedDreadAreasResponse represents all areas with elevated dread
type ElevatedDreadAreasResponse struct {
	ElevatedAreas []ElevatedDreadArea `json:"elevated_areas"`
}

// LeaveNoteRequest represents a request to leave a note at a location
type LeaveNoteRequest struct {
	AreaID         string `json:"area_id" binding:"required"`
	NoteLocationID string `json:"note_location_id" binding:"required"`
	Word           string `json:"word" binding:"required"`
}

// LeaveNoteResponse represents the acknowledgement of a placed note
type LeaveNoteResponse struct {
	Message string `json:"message"`
}

// PlayerNote represents one note visible in an area
type PlayerNote struct {
	NoteLocationID string `json:"note_location_id"`
	Word           string `json:"word"`
}

// PlayerNotesResponse represents the notes visible in an area
type PlayerNotesResponse struct {
	AreaID string       `json:"area_id"`
	Notes  []PlayerNote `json:"notes"`
}

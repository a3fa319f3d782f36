package core

import "time"

// ProcessingStatus is the lifecycle state of a Document analysis or a Newspaper generation run.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsTerminal reports whether the status ends a run.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// TechnicalLevel grades how much background a paper expects from its reader.
type TechnicalLevel string

const (
	LevelBeginner     TechnicalLevel = "beginner"
	LevelIntermediate TechnicalLevel = "intermediate"
	LevelAdvanced     TechnicalLevel = "advanced"
	// LevelUnknown marks an analysis whose response did not grade the paper.
	LevelUnknown TechnicalLevel = "unknown"
)

// ParseTechnicalLevel normalizes free text into a TechnicalLevel, falling back to unknown.
func ParseTechnicalLevel(s string) TechnicalLevel {
	switch TechnicalLevel(s) {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return TechnicalLevel(s)
	}
	return LevelUnknown
}

// Visibility controls who may read a Newspaper.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityGroup   Visibility = "group"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityGroup || v == VisibilityPublic
}

// MembershipTier is the billing tier of an account.
type MembershipTier string

const (
	TierFree    MembershipTier = "free"
	TierPremium MembershipTier = "premium"
)

// ErrorRecord is one entry in an entity's error history. Records are appended, never edited.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// Analysis is the structured AI-derived summary of a Document.
type Analysis struct {
	Summary         string         `json:"summary"`
	KeyPoints       []string       `json:"keyPoints"`
	Significance    string         `json:"significance"`
	RelatedTopics   []string       `json:"relatedTopics"`
	AcademicField   string         `json:"academicField"`
	TechnicalLevel  TechnicalLevel `json:"technicalLevel"`
	ConfidenceScore int            `json:"confidenceScore"` // 0..100
}

// Document is an uploaded paper and its processing state.
type Document struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id"`
	Title        string           `json:"title"`
	Authors      []string         `json:"authors"`
	SourceURL    string           `json:"source_url"`
	ByteSize     int64            `json:"byte_size"`
	Status       ProcessingStatus `json:"status"`
	Analysis     *Analysis        `json:"analysis,omitempty"`
	ErrorHistory []ErrorRecord    `json:"error_history"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// LastError returns the most recent error record, if any.
func (d *Document) LastError() *ErrorRecord {
	if len(d.ErrorHistory) == 0 {
		return nil
	}
	return &d.ErrorHistory[len(d.ErrorHistory)-1]
}

// Headline is the main/sub title pair of a Newspaper.
type Headline struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
}

// SideInfo is the sidebar block of a Newspaper.
type SideInfo struct {
	Keywords           []string `json:"keywords"`
	FutureImplications string   `json:"futureImplications"`
}

// NewspaperContent is the generated body of a Newspaper. Every field is always populated.
type NewspaperContent struct {
	Headline   Headline `json:"headline"`
	Lead       string   `json:"lead"`
	Body       string   `json:"body"`
	Conclusion string   `json:"conclusion"`
	SideInfo   SideInfo `json:"sideInfo"`
}

// Newspaper is the artifact generated from one or more analyzed Documents.
type Newspaper struct {
	ID                string            `json:"id"`
	CreatorID         string            `json:"creator_id"`
	SourceDocumentIDs []string          `json:"source_document_ids"` // first entry is the main paper
	TemplateID        string            `json:"template_id"`
	Status            ProcessingStatus  `json:"status"`
	Content           *NewspaperContent `json:"content,omitempty"`
	Visibility        Visibility        `json:"share_visibility"`
	ViewCount         int               `json:"view_count"`
	ErrorHistory      []ErrorRecord     `json:"error_history"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Account is the quota state of a user.
type Account struct {
	ID              string         `json:"id"`
	Tier            MembershipTier `json:"membership_tier"`
	GenerationCount int            `json:"generation_count_this_period"`
	PeriodStart     time.Time      `json:"period_start"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

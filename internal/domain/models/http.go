package models

// Requests for the ops HTTP endpoints. Defined in domain for consistency and reuse.

type EffectiveSettingsRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
	TF     string `query:"tf" json:"tf"`
}

type PresetRequest struct {
	Name string `param:"name" json:"name" validate:"required"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf"`
	Limit  int    `query:"limit" json:"limit"`
}

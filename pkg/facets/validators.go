package facets

type SuggestQuery struct {
	Query string `query:"q" json:"q" mod:"trim" validate:"max=100"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"min=1,max=50"`
}

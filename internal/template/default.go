package template

// DefaultReview is the embedded review sheet template.
// It uses {{variable}} placeholders filled from the draft.
const DefaultReview = `# {{title}}

**{{property_type}}** · {{rent_mode}} · {{flow}} flow

## Location
{{location}}

## Price
{{pricing}}

## Photos ({{photo_count}})
{{photos}}

## Amenities
{{amenities}}

## Description
{{description}}
{{changes}}
{{issues}}`

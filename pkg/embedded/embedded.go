package embedded

import (
	"embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/feature_extraction.txt
var FeatureExtractionPromptTxt []byte

//go:embed data/prompts/narration_preamble.txt
var NarrationPreambleTxt []byte

//go:embed data/prompts/consistency_disclaimer.txt
var ConsistencyDisclaimerTxt []byte

// TemplatesFS holds one visualization template per file, named <template>.txt
//
//go:embed data/templates/*.txt
var TemplatesFS embed.FS

// TemplatesDir is the directory inside TemplatesFS that holds the template files
const TemplatesDir = "data/templates"

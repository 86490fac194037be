package metadata

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ClowderContext is the JSON-LD context URL assigned to every document
// produced by the pipeline.
const ClowderContext string = "https://clowder.ncsa.illinois.edu/contexts/metadata.jsonld"

// UAMACVocab is the default vocabulary for metadata terms recorded at the
// ua-mac station.
const UAMACVocab string = "https://terraref.ncsa.illinois.edu/metadata/uamac#"

// IsCleanedDocument returns true if body is a JSON-LD document produced by an
// earlier cleaning run, which is to say it has both '@context' and 'content'
// keys.
func IsCleanedDocument(body []byte) bool {

	context_rsp := gjson.GetBytes(body, "\\@context")
	content_rsp := gjson.GetBytes(body, "content")

	return context_rsp.Exists() && content_rsp.Exists()
}

// UnwrapContent returns the 'content' block of body when present, otherwise
// body itself. It allows already-cleaned documents to be fed back through the
// pipeline.
func UnwrapContent(body []byte) []byte {

	content_rsp := gjson.GetBytes(body, "content")

	if content_rsp.Exists() {
		return []byte(content_rsp.Raw)
	}

	return body
}

// NewExtractorDocument wraps content in a JSON-LD envelope attributed to a
// 'cat:extractor' agent with the given name and version. It is attached to
// containers holding converted (Level_1) products.
func NewExtractorDocument(content []byte, filename string, name string, version string) ([]byte, error) {

	doc := []byte("{}")
	var err error

	doc, err = sjson.SetBytes(doc, "\\@context", []string{ClowderContext})

	if err != nil {
		return nil, fmt.Errorf("Failed to assign @context, %w", err)
	}

	doc, err = sjson.SetRawBytes(doc, "content", content)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign content, %w", err)
	}

	doc, err = sjson.SetBytes(doc, "filename", filename)

	if err != nil {
		return nil, err
	}

	doc, err = sjson.SetBytes(doc, "agent.\\@type", "cat:extractor")

	if err != nil {
		return nil, err
	}

	doc, err = sjson.SetBytes(doc, "agent.version", version)

	if err != nil {
		return nil, err
	}

	doc, err = sjson.SetBytes(doc, "agent.name", name)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// NewUserDocument wraps content in a JSON-LD envelope attributed to a
// 'cat:user' agent, optionally carrying a user id. It is the output format
// of the metadata cleaner.
func NewUserDocument(content []byte, userid string) ([]byte, error) {

	doc := []byte("{}")
	var err error

	context := []interface{}{
		ClowderContext,
		map[string]string{
			"@vocab": UAMACVocab,
		},
	}

	doc, err = sjson.SetBytes(doc, "\\@context", context)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign @context, %w", err)
	}

	doc, err = sjson.SetRawBytes(doc, "content", content)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign content, %w", err)
	}

	doc, err = sjson.SetBytes(doc, "agent.\\@type", "cat:user")

	if err != nil {
		return nil, err
	}

	if userid != "" {

		doc, err = sjson.SetBytes(doc, "agent.user_id", userid)

		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

package whatsapp

// TemplateMessage is a templated message with an optional document
// header and positional body parameters.
type TemplateMessage struct {
	To           string
	TemplateName string
	LanguageCode string

	DocumentURL      string
	DocumentFilename string

	BodyParams []string
}

// Template builds the Graph API template object
func (m *TemplateMessage) Template() map[string]interface{} {
	lang := m.LanguageCode
	if lang == "" {
		lang = "es"
	}

	var components []map[string]interface{}

	if m.DocumentURL != "" {
		components = append(components, map[string]interface{}{
			"type": "header",
			"parameters": []map[string]interface{}{
				{
					"type": "document",
					"document": map[string]interface{}{
						"link":     m.DocumentURL,
						"filename": m.DocumentFilename,
					},
				},
			},
		})
	}

	if len(m.BodyParams) > 0 {
		params := make([]map[string]interface{}, 0, len(m.BodyParams))
		for _, p := range m.BodyParams {
			params = append(params, map[string]interface{}{
				"type": "text",
				"text": p,
			})
		}
		components = append(components, map[string]interface{}{
			"type":       "body",
			"parameters": params,
		})
	}

	return map[string]interface{}{
		"name": m.TemplateName,
		"language": map[string]interface{}{
			"code": lang,
		},
		"components": components,
	}
}

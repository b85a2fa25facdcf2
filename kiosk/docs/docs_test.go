package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestSwaggerDoc_IsRegistered(t *testing.T) {
	SwaggerInfo.Host = "localhost:8080"
	defer func() { SwaggerInfo.Host = "" }()

	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("Failed to read doc: %v", err)
	}

	var doc struct {
		Swagger string                            `json:"swagger"`
		Host    string                            `json:"host"`
		Info    map[string]interface{}            `json:"info"`
		Paths   map[string]map[string]interface{} `json:"paths"`
		Defs    map[string]interface{}            `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Doc is not valid JSON: %v", err)
	}

	if doc.Swagger != "2.0" || doc.Host != "localhost:8080" {
		t.Errorf("Unexpected header: swagger=%s host=%s", doc.Swagger, doc.Host)
	}
	if doc.Info["title"] != "TheraLink Kiosk API" {
		t.Errorf("Unexpected title: %v", doc.Info["title"])
	}
	for _, path := range []string{"/stats.json", "/oled.json", "/survey_state.json", "/download.csv", "/survey_submit"} {
		if _, ok := doc.Paths[path]["get"]; !ok {
			t.Errorf("Expected GET %s in doc", path)
		}
	}
	for _, def := range []string{"stats.Document", "transport.OLEDDocument", "transport.SurveyStateDocument"} {
		if _, ok := doc.Defs[def]; !ok {
			t.Errorf("Expected definition %s", def)
		}
	}
}

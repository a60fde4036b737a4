package e2e

import (
	"net/http"
	"strings"
	"testing"
)

const receiptCSV = "```csv\nfood_name,quantity,unit,food_category\nWhole Milk,1,gallon,Dairy\nBananas,6,null,Fruits\nChicken Breast,2 lbs,,Proteins\n```"

func TestReceipt_ScansThroughPipeline(t *testing.T) {
	f := newFakeGumloop(map[string]*scenario{
		receiptPipelineID: {
			states:  []string{"RUNNING", "DONE"},
			outputs: map[string]interface{}{"receipt_text": receiptCSV},
		},
	})
	ta := setupAppWithPipeline(t, f)

	resp, err := doReceiptUpload(t, ta.app, "receipt.jpg", "image/jpeg", []byte("fake-image"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	items := parseJSON(t, resp)["items"].([]interface{})
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %v", items)
	}
	milk := items[0].(map[string]interface{})
	if milk["name"] != "Whole Milk" || milk["category"] != "dairy" || milk["unit"] != "gallon" {
		t.Errorf("unexpected first item %v", milk)
	}
	bananas := items[1].(map[string]interface{})
	if bananas["unit"] != "count" || bananas["category"] != "fruit" {
		t.Errorf("unexpected second item %v", bananas)
	}

	fileRef := f.input(receiptPipelineID, "file_name")
	if !strings.HasSuffix(fileRef, ".jpg") {
		t.Errorf("expected uploaded file reference to keep the extension, got %q", fileRef)
	}

	// receipt items are not saved until confirmed
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/pantry", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if n := len(parseJSON(t, resp)["items"].([]interface{})); n != 0 {
		t.Errorf("expected pantry to stay empty, got %d items", n)
	}
}

func TestFromURL_ThroughPipeline(t *testing.T) {
	f := newFakeGumloop(map[string]*scenario{
		recipePipelineID: {
			states: []string{"DONE"},
			outputs: map[string]interface{}{
				"recipe_json": `Here is the recipe: {"recipe_name":"Shakshuka","prep_time":"15 min","ingredients":[{"name":"Eggs","quantity":"4"}]}`,
			},
		},
	})
	ta := setupAppWithPipeline(t, f)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/recipes/from-url",
		`{"url":"https://www.youtube.com/watch?v=abc"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	recipe := parseJSON(t, resp)["recipe"].(map[string]interface{})
	if recipe["name"] != "Shakshuka" {
		t.Errorf("expected Shakshuka, got %v", recipe["name"])
	}
	if recipe["source"] != "youtube.com" {
		t.Errorf("expected source youtube.com, got %v", recipe["source"])
	}
	if got := f.input(recipePipelineID, "url"); got != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("expected url input, got %q", got)
	}
}

func TestSuggestions_ThroughPipeline(t *testing.T) {
	f := newFakeGumloop(map[string]*scenario{
		suggestPipelineID: {
			states: []string{"RUNNING", "DONE"},
			outputs: map[string]interface{}{
				"output1": `{"name":"Fried Rice","ingredients":[{"name":"Rice","quantity":1,"unit":"cup"}]}`,
				"output2": "sorry, no recipe",
				"output3": `{"name":"Omelette","ingredients":[{"name":"Eggs","quantity":2}]}`,
			},
		},
	})
	ta := setupAppWithPipeline(t, f)
	addPantry(t, ta, `{"items":[{"name":"Rice","quantity":2,"unit":"cup","category":"grain"}]}`)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/recipes/suggestions", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	recipes := parseJSON(t, resp)["recipes"].([]interface{})
	if len(recipes) != 2 {
		t.Fatalf("expected 2 parseable suggestions, got %v", recipes)
	}
	first := recipes[0].(map[string]interface{})
	if first["name"] != "Fried Rice" || first["source"] != "AI Suggested" || first["id"] != float64(1) {
		t.Errorf("unexpected first suggestion %v", first)
	}
	second := recipes[1].(map[string]interface{})
	if second["id"] != float64(2) {
		t.Errorf("expected sequential ids, got %v", second["id"])
	}

	pantryCSV := f.input(suggestPipelineID, "pantry")
	if !strings.HasPrefix(pantryCSV, "food_name,quantity,unit,food_category") || !strings.Contains(pantryCSV, "Rice") {
		t.Errorf("unexpected pantry snapshot %q", pantryCSV)
	}
}

func TestPipelineErrors_MapToStatus(t *testing.T) {
	cases := []struct {
		name     string
		scenario *scenario
		status   int
		code     string
	}{
		{
			name:     "run never finishes",
			scenario: &scenario{states: []string{"RUNNING"}},
			status:   http.StatusGatewayTimeout,
			code:     "PIPELINE_TIMEOUT",
		},
		{
			name:     "run failed",
			scenario: &scenario{states: []string{"RUNNING", "FAILED"}, errMessage: "node crashed"},
			status:   http.StatusBadGateway,
			code:     "PIPELINE_FAILED",
		},
		{
			name:     "start rejected",
			scenario: &scenario{startStatus: http.StatusBadRequest},
			status:   http.StatusBadGateway,
			code:     "BAD_GATEWAY",
		},
		{
			name:     "service unavailable",
			scenario: &scenario{states: []string{"RUNNING"}, pollStatus: http.StatusServiceUnavailable},
			status:   http.StatusServiceUnavailable,
			code:     "UPSTREAM_UNAVAILABLE",
		},
		{
			name: "recipe not json",
			scenario: &scenario{
				states:  []string{"DONE"},
				outputs: map[string]interface{}{"recipe_json": "I could not read that page."},
			},
			status: http.StatusBadGateway,
			code:   "FORMAT_ERROR",
		},
		{
			name: "output missing",
			scenario: &scenario{
				states:  []string{"DONE"},
				outputs: map[string]interface{}{"other": "x"},
			},
			status: http.StatusBadGateway,
			code:   "FORMAT_ERROR",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeGumloop(map[string]*scenario{recipePipelineID: tc.scenario})
			ta := setupAppWithPipeline(t, f)

			resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/recipes/from-url",
				`{"url":"https://example.com/recipe"}`)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, tc.status)
			assertErrorCode(t, parseJSON(t, resp), tc.code)
		})
	}
}

func TestPipelineFailed_CarriesRemoteMessage(t *testing.T) {
	f := newFakeGumloop(map[string]*scenario{
		receiptPipelineID: {states: []string{"FAILED"}, errMessage: "could not read image"},
	})
	ta := setupAppWithPipeline(t, f)

	resp, err := doReceiptUpload(t, ta.app, "receipt.png", "image/png", []byte("blurry"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadGateway)

	body := parseJSON(t, resp)
	errObj := body["error"].(map[string]interface{})
	if errObj["message"] != "could not read image" {
		t.Errorf("expected remote error message, got %v", errObj["message"])
	}
}

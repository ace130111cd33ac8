// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vlm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"passport-crosscheck/internal/crosscheck"
)

// Models like to wrap JSON in a markdown fence, with or without a language tag.
var codeFence = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

// ParseResponse decodes the model's answer into visual zone fields. Keys
// holding anything other than a string are treated as missing.
func ParseResponse(response string) (*crosscheck.VisualZoneData, error) {
	if strings.TrimSpace(response) == "" {
		return nil, crosscheck.NewVLMExtractionError("Empty response from VLM", nil)
	}

	payload := response
	if m := codeFence.FindStringSubmatch(response); m != nil {
		payload = strings.TrimSpace(m[1])
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, crosscheck.NewVLMExtractionError(fmt.Sprintf("Failed to parse VLM response as JSON: %v", err), err)
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, crosscheck.NewVLMExtractionError(fmt.Sprintf("Expected JSON object, got %s", jsonKind(decoded)), nil)
	}

	raw := response
	return &crosscheck.VisualZoneData{
		Surname:        stringValue(obj, "surname"),
		GivenNames:     stringValue(obj, "given_names"),
		DateOfBirth:    stringValue(obj, "date_of_birth"),
		Nationality:    stringValue(obj, "nationality"),
		PassportNumber: stringValue(obj, "passport_number"),
		ExpiryDate:     stringValue(obj, "expiry_date"),
		Sex:            stringValue(obj, "sex"),
		PlaceOfBirth:   stringValue(obj, "place_of_birth"),
		RawResponse:    &raw,
	}, nil
}

func stringValue(obj map[string]interface{}, key string) *string {
	s, ok := obj[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case []interface{}:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

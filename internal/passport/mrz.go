// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package passport

import (
	"regexp"
	"strings"
)

// Line lengths per ICAO 9303 layout.
const (
	td1LineLength = 30
	td2LineLength = 36
	td3LineLength = 44

	// OCR often drops or adds a filler or two at the end of a line.
	lineLengthTolerance = 2
)

var nonMRZChars = regexp.MustCompile(`[^A-Z0-9<]`)

// ParseMRZ locates the machine readable zone inside free OCR text and decodes
// it. The zone is searched from the bottom of the page upwards because that is
// where ICAO documents print it.
func ParseMRZ(text string) (*RawMRZData, error) {
	lines := candidateLines(text)

	for end := len(lines); end > 0; end-- {
		if end >= 3 {
			if block, ok := fitLines(lines[end-3:end], td1LineLength); ok {
				return decodeTD1(block), nil
			}
		}
		if end >= 2 {
			if block, ok := fitLines(lines[end-2:end], td3LineLength); ok {
				return decodeTwoLine(block, td3LineLength), nil
			}
			if block, ok := fitLines(lines[end-2:end], td2LineLength); ok {
				return decodeTwoLine(block, td2LineLength), nil
			}
		}
	}
	return nil, ErrMRZNotFound
}

// candidateLines upper-cases each OCR line, maps common misreads of the filler
// character and strips everything outside the MRZ alphabet.
func candidateLines(text string) []string {
	replacer := strings.NewReplacer("«", "<", "‹", "<", "(", "<", "[", "<", "{", "<", " ", "")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := nonMRZChars.ReplaceAllString(replacer.Replace(strings.ToUpper(strings.TrimSpace(line))), "")
		if len(cleaned) >= td1LineLength-lineLengthTolerance {
			lines = append(lines, cleaned)
		}
	}
	return lines
}

// fitLines pads or trims every line to the expected length when all of them
// are within tolerance. MRZ lines always contain at least one filler.
func fitLines(lines []string, length int) ([]string, bool) {
	out := make([]string, len(lines))
	for i, line := range lines {
		if abs(len(line)-length) > lineLengthTolerance || !strings.Contains(line, "<") {
			return nil, false
		}
		if len(line) > length {
			line = line[:length]
		}
		out[i] = line + strings.Repeat("<", length-len(line))
	}
	return out, true
}

func decodeTwoLine(lines []string, length int) *RawMRZData {
	l1, l2 := lines[0], lines[1]

	mrzType := MRZTypeTD3
	if length == td2LineLength {
		mrzType = MRZTypeTD2
	}
	if l1[0] == 'V' {
		mrzType = MRZTypeMRVA
		if length == td2LineLength {
			mrzType = MRZTypeMRVB
		}
	}

	surname, given := splitNames(l1[5:])
	optionalEnd := length - 1
	if mrzType == MRZTypeTD3 {
		optionalEnd = 42
	}

	return &RawMRZData{
		MRZType:        mrzType,
		RawText:        strings.Join(lines, "\n"),
		Surname:        surname,
		GivenNames:     given,
		Country:        field(l1[2:5]),
		DocumentNumber: field(l2[0:9]),
		Nationality:    field(l2[10:13]),
		BirthDate:      dateField(l2[13:19]),
		Sex:            sexField(l2[20]),
		ExpiryDate:     dateField(l2[21:27]),
		OptionalData:   field(l2[28:optionalEnd]),
	}
}

func decodeTD1(lines []string) *RawMRZData {
	l1, l2, l3 := lines[0], lines[1], lines[2]
	surname, given := splitNames(l3)

	optional := strings.TrimRight(l1[15:30], "<")
	if extra := strings.TrimRight(l2[18:29], "<"); extra != "" {
		optional += "<" + extra
	}

	return &RawMRZData{
		MRZType:        MRZTypeTD1,
		RawText:        strings.Join(lines, "\n"),
		Surname:        surname,
		GivenNames:     given,
		Country:        field(l1[2:5]),
		DocumentNumber: field(l1[5:14]),
		BirthDate:      dateField(l2[0:6]),
		Sex:            sexField(l2[7]),
		ExpiryDate:     dateField(l2[8:14]),
		Nationality:    field(l2[15:18]),
		OptionalData:   field(optional),
	}
}

// splitNames splits the name field at the first double filler into primary
// and secondary identifiers.
func splitNames(s string) (*string, *string) {
	primary, secondary, _ := strings.Cut(s, "<<")
	return nameField(primary), nameField(secondary)
}

func nameField(s string) *string {
	return field(strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '<' }), " "))
}

func field(s string) *string {
	s = strings.Trim(strings.ReplaceAll(s, "<", " "), " ")
	if s == "" {
		return nil
	}
	return &s
}

func dateField(s string) *string {
	return field(digitize(s))
}

func sexField(c byte) *string {
	switch c {
	case 'M', 'F', 'X':
		s := string(c)
		return &s
	}
	return nil
}

// digitize repairs letters OCR commonly reads in place of digits. It is only
// applied to positions that ICAO defines as numeric.
func digitize(s string) string {
	return strings.NewReplacer("O", "0", "Q", "0", "D", "0", "I", "1", "L", "1", "Z", "2", "S", "5", "B", "8", "G", "6").Replace(s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Package qti imports IMS QTI content packages into plaintext exam documents
// ready for sealing. Only single-cardinality choice items are accepted since
// an exam question has exactly one correct option.
package qti

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ecodeclub/ekit/slice"

	"github.com/mind-engage/examvault/internal/exam"
)

var ErrUnsupportedItem = errors.New("unsupported qti item")

type manifest struct {
	XMLName   xml.Name   `xml:"manifest"`
	Resources []resource `xml:"resources>resource"`
}

type resource struct {
	Identifier string `xml:"identifier,attr"`
	Type       string `xml:"type,attr"`
	Href       string `xml:"href,attr"`
}

type assessmentItem struct {
	XMLName    xml.Name `xml:"assessmentItem"`
	Identifier string   `xml:"identifier,attr"`
	Response   struct {
		Identifier  string   `xml:"identifier,attr"`
		Cardinality string   `xml:"cardinality,attr"`
		Correct     []string `xml:"correctResponse>value"`
	} `xml:"responseDeclaration"`
	Body struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"itemBody"`
}

type choice struct {
	id    string
	label string
}

// ImportFile reads a zipped content package from disk.
func ImportFile(name string) (exam.Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return exam.Document{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return exam.Document{}, err
	}
	return Import(f, st.Size())
}

// Import converts every item listed in the package manifest into a question,
// keeping manifest order.
func Import(r io.ReaderAt, size int64) (exam.Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return exam.Document{}, fmt.Errorf("open package: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[path.Clean(f.Name)] = f
	}

	mf, ok := files["imsmanifest.xml"]
	if !ok {
		return exam.Document{}, fmt.Errorf("imsmanifest.xml not found")
	}
	var m manifest
	if err := decodeFile(mf, &m); err != nil {
		return exam.Document{}, fmt.Errorf("manifest: %w", err)
	}

	items := slice.FilterMap(m.Resources, func(_ int, r resource) (string, bool) {
		return path.Clean(r.Href), isItem(r)
	})
	var doc exam.Document
	for _, href := range items {
		f, ok := files[href]
		if !ok {
			return exam.Document{}, fmt.Errorf("item %s missing from package", href)
		}
		var it assessmentItem
		if err := decodeFile(f, &it); err != nil {
			return exam.Document{}, fmt.Errorf("item %s: %w", href, err)
		}
		q, err := toQuestion(it)
		if err != nil {
			return exam.Document{}, err
		}
		doc.Questions = append(doc.Questions, q)
	}
	if len(doc.Questions) == 0 {
		return exam.Document{}, fmt.Errorf("package has no items: %w", exam.ErrInvalidContent)
	}
	return doc, nil
}

func isItem(r resource) bool {
	if strings.HasPrefix(strings.ToLower(r.Type), "imsqti_item") {
		return true
	}
	href := strings.ToLower(r.Href)
	return strings.HasSuffix(href, ".xml") && !strings.Contains(href, "manifest")
}

func decodeFile(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

func toQuestion(it assessmentItem) (exam.Question, error) {
	if c := it.Response.Cardinality; c != "" && c != "single" {
		return exam.Question{}, fmt.Errorf("%w: %s has cardinality %s", ErrUnsupportedItem, it.Identifier, c)
	}
	if len(it.Response.Correct) != 1 {
		return exam.Question{}, fmt.Errorf("%w: %s needs exactly one correct value", ErrUnsupportedItem, it.Identifier)
	}
	prompt, choices, err := walkBody(it.Body.Inner)
	if err != nil {
		return exam.Question{}, fmt.Errorf("item %s body: %w", it.Identifier, err)
	}
	if len(choices) == 0 {
		return exam.Question{}, fmt.Errorf("%w: %s has no choiceInteraction", ErrUnsupportedItem, it.Identifier)
	}
	correct := -1
	for i, c := range choices {
		if c.id == it.Response.Correct[0] {
			correct = i
			break
		}
	}
	if correct < 0 {
		return exam.Question{}, fmt.Errorf("item %s: correct value %q is not a choice: %w",
			it.Identifier, it.Response.Correct[0], exam.ErrInvalidContent)
	}
	return exam.Question{
		Prompt:             prompt,
		Options:            slice.Map(choices, func(_ int, c choice) string { return c.label }),
		CorrectAnswerIndex: correct,
	}, nil
}

// walkBody collects the text around and inside <prompt> as the question, and
// each <simpleChoice> as an option. Markup inside either is flattened to text.
func walkBody(inner []byte) (string, []choice, error) {
	dec := xml.NewDecoder(strings.NewReader(string(inner)))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	var (
		prompt  strings.Builder
		choices []choice
		cur     *choice
		label   strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "simpleChoice" {
				cur = &choice{id: attr(t, "identifier")}
				label.Reset()
			}
		case xml.EndElement:
			if t.Name.Local == "simpleChoice" && cur != nil {
				cur.label = collapse(label.String())
				choices = append(choices, *cur)
				cur = nil
			}
		case xml.CharData:
			if cur != nil {
				label.Write(t)
				continue
			}
			prompt.Write(t)
			prompt.WriteByte(' ')
		}
	}
	return collapse(prompt.String()), choices, nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package yamlsource

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/catalogue/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

func TestLoadEmbedded(t *testing.T) {
	doc, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if doc.Jurisdiction != "NY" || doc.Version == "" {
		t.Fatalf("doc=%s/%s", doc.Jurisdiction, doc.Version)
	}
	if len(doc.Areas) != 4 {
		t.Fatalf("areas=%d", len(doc.Areas))
	}
	for i, want := range types.PracticeAreaIDs {
		if doc.Areas[i].ID != want {
			t.Fatalf("area[%d]=%s want=%s", i, doc.Areas[i].ID, want)
		}
		if len(doc.Areas[i].Tasks) != 7 {
			t.Fatalf("area %s tasks=%d", want, len(doc.Areas[i].Tasks))
		}
	}

	pi := doc.Areas[0]
	notice := pi.Tasks[0]
	if notice.ID != "pi-notice-of-claim" || notice.Deadline == nil || !notice.Deadline.Computable() || *notice.Deadline.OffsetDays != 90 {
		t.Fatalf("notice=%+v", notice)
	}
	if len(notice.Advisories) == 0 || notice.Advisories[0].Citation == "" {
		t.Fatalf("advisories=%+v", notice.Advisories)
	}

	re := doc.Areas[2]
	var mansion *tiered.BracketTable
	for _, tbl := range re.Tables {
		if tbl.Name == "mansion_tax_tiers" {
			mansion = tbl.Brackets
		}
	}
	if mansion == nil || len(mansion.Brackets) != 9 || mansion.Boundary != tiered.BoundaryLower {
		t.Fatalf("mansion=%+v", mansion)
	}

	cd := doc.Areas[3]
	st := cd.Tables[0]
	b, ok := st.Budget("misdemeanor")
	if !ok || b.Amount != 90 || b.Unit != timebudget.UnitDays {
		t.Fatalf("budget=%+v ok=%v", b, ok)
	}

	fl := doc.Areas[1]
	support, ok := func() (types.TaskDefinition, bool) {
		for _, task := range fl.Tasks {
			if task.ID == "fl-child-support" {
				return task, true
			}
		}
		return types.TaskDefinition{}, false
	}()
	if !ok || len(support.Calculations) != 1 || support.Calculations[0].AmountCap == nil || support.Calculations[0].AmountCap.String() != "183000" {
		t.Fatalf("support=%+v", support.Calculations)
	}
}

func TestEmbeddedIsACopy(t *testing.T) {
	raw := Embedded()
	raw[0] = '#'
	if _, err := LoadEmbedded(); err != nil {
		t.Fatalf("embedded catalogue mutated: %v", err)
	}
}

const minimal = `version: %s
jurisdiction: NY
practice_areas:
  - id: personal-injury
    name: Personal Injury
    task_prefix: pi-
    tasks:
      - id: pi-x
        name: X
        fields:
          - {name: a, label: A, kind: %s}
`

func render(version string, kind string) []byte {
	s := strings.Replace(minimal, "%s", version, 1)
	return []byte(strings.Replace(s, "%s", kind, 1))
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(render("1.0.0", "text")); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, err := Parse(render("2.0.0", "text")); !errors.Is(err, ErrVersion) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Parse(render("one", "text")); !errors.Is(err, ErrVersion) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Parse(render("1.0.0", "richtext")); !errors.Is(err, ErrSchema) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Parse(render("1.0.0", "select")); !errors.Is(err, ErrSchema) {
		t.Fatalf("select without options: err=%v", err)
	}
	if _, err := Parse([]byte("version: [")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err=%v", err)
	}
}

const withDeadline = `version: 1.0.0
jurisdiction: NY
practice_areas:
  - id: personal-injury
    name: Personal Injury
    task_prefix: pi-
    tasks:
      - id: pi-x
        name: X
        deadline: {text: soon, offset_days: %s, trigger_field: a}
        fields:
          - {name: a, label: A, kind: date}
`

func TestParse_NumericValidation(t *testing.T) {
	cases := []struct {
		offset string
		ok     bool
	}{
		{offset: "30", ok: true},
		{offset: "0", ok: true},
		{offset: "2.5"},
		{offset: "-1"},
		{offset: `"30"`},
	}
	for _, tc := range cases {
		doc, err := Parse([]byte(strings.Replace(withDeadline, "%s", tc.offset, 1)))
		if !tc.ok {
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("offset=%s err=%v", tc.offset, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("offset=%s err=%v", tc.offset, err)
		}
		dl := doc.Areas[0].Tasks[0].Deadline
		if dl == nil || dl.OffsetDays == nil || strconv.Itoa(*dl.OffsetDays) != tc.offset {
			t.Fatalf("offset=%s deadline=%+v", tc.offset, dl)
		}
	}
}

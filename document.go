package courselookup

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goccy/go-reflect"
	"github.com/oarkflow/json"

	"github.com/oarkflow/courselookup/utils"
)

// GenericRecord is the loosely typed form of a dataset row.
type GenericRecord map[string]any

// CourseRecord is one offered course in the search dataset.
type CourseRecord struct {
	ID          string   `json:"_id"`
	Subject     string   `json:"subject"`
	Title       string   `json:"title"`
	CatalogCode string   `json:"catalog"`
	Instructors []string `json:"instructors"`
}

// Text returns the string indexed for the course: id, subject, title and
// catalog code joined by spaces.
func (c CourseRecord) Text() string {
	return strings.Join([]string{c.ID, c.Subject, c.Title, c.CatalogCode}, " ")
}

// Record exposes the course as a GenericRecord so filter conditions can be
// evaluated against it.
func (c CourseRecord) Record() GenericRecord {
	instructors := make([]any, len(c.Instructors))
	for i, name := range c.Instructors {
		instructors[i] = name
	}
	return GenericRecord{
		"_id":         c.ID,
		"subject":     c.Subject,
		"title":       c.Title,
		"catalog":     c.CatalogCode,
		"instructors": instructors,
	}
}

// RecordAdapter normalizes arbitrary inputs into CourseRecords.
type RecordAdapter interface {
	CanHandle(value any) bool
	Adapt(ctx context.Context, value any) (CourseRecord, error)
}

var defaultAdapterRegistry = newAdapterRegistry()

// adapterRegistry keeps a prioritized list of adapters.
type adapterRegistry struct {
	mu       sync.RWMutex
	adapters []RecordAdapter
}

func newAdapterRegistry() *adapterRegistry {
	return &adapterRegistry{adapters: make([]RecordAdapter, 0, 4)}
}

func (ar *adapterRegistry) register(adapter RecordAdapter) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.adapters = append(ar.adapters, adapter)
}

func (ar *adapterRegistry) adapterFor(value any) (RecordAdapter, bool) {
	ar.mu.RLock()
	defer ar.mu.RUnlock()
	for _, adapter := range ar.adapters {
		if adapter.CanHandle(value) {
			return adapter, true
		}
	}
	return nil, false
}

// RegisterRecordAdapter adds a new adapter globally. Adapters registered
// later are consulted after the built-in ones.
func RegisterRecordAdapter(adapter RecordAdapter) {
	defaultAdapterRegistry.register(adapter)
}

// AdaptRecord converts any supported value into a CourseRecord.
func AdaptRecord(ctx context.Context, value any) (CourseRecord, error) {
	switch v := value.(type) {
	case CourseRecord:
		return v, nil
	case *CourseRecord:
		if v == nil {
			return CourseRecord{}, fmt.Errorf("%w: nil *CourseRecord", errNoAdapter)
		}
		return *v, nil
	case GenericRecord:
		return RecordFromMap(v)
	case map[string]any:
		return RecordFromMap(v)
	}
	adapter, ok := defaultAdapterRegistry.adapterFor(value)
	if !ok {
		return CourseRecord{}, fmt.Errorf("%w: %T", errNoAdapter, value)
	}
	return adapter.Adapt(ctx, value)
}

// AdaptRecords converts every element of a slice. Elements that cannot be
// adapted are reported to onSkip (when non-nil) and left out.
func AdaptRecords(ctx context.Context, values any, onSkip func(i int, err error)) ([]CourseRecord, error) {
	if recs, ok := values.([]CourseRecord); ok {
		return append([]CourseRecord(nil), recs...), nil
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("courselookup: expected a slice of records, got %T", values)
	}
	out := make([]CourseRecord, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := AdaptRecord(ctx, rv.Index(i).Interface())
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeCourses streams a JSON array of course objects from r. Elements
// that are not valid course objects are reported to onSkip and left out.
// An input that is not a JSON array is an error.
func DecodeCourses(r io.Reader, onSkip func(i int, err error)) ([]CourseRecord, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	tok, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("courselookup: reading dataset: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("courselookup: dataset must be a JSON array, got %v", tok)
	}
	var out []CourseRecord
	for i := 0; decoder.More(); i++ {
		var rec GenericRecord
		if err := decoder.Decode(&rec); err != nil {
			// The stream position is unknown after a syntax error.
			return out, fmt.Errorf("courselookup: decoding record %d: %w", i, err)
		}
		course, err := RecordFromMap(rec)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		out = append(out, course)
	}
	return out, nil
}

// RecordFromMap builds a CourseRecord from a loosely typed row. A missing
// _id is synthesized from subject and catalog code.
func RecordFromMap(rec map[string]any) (CourseRecord, error) {
	if rec == nil {
		return CourseRecord{}, fmt.Errorf("courselookup: empty record")
	}
	course := CourseRecord{
		ID:          strings.TrimSpace(utils.ToString(rec["_id"])),
		Subject:     strings.TrimSpace(utils.ToString(rec["subject"])),
		Title:       utils.CollapseSpaces(utils.ToString(rec["title"])),
		CatalogCode: strings.TrimSpace(utils.ToString(rec["catalog"])),
		Instructors: instructorsFrom(rec["instructors"]),
	}
	if course.ID == "" {
		course.ID = course.Subject + course.CatalogCode
	}
	if course.ID == "" {
		return CourseRecord{}, fmt.Errorf("courselookup: record has neither _id nor subject/catalog")
	}
	return course, nil
}

// instructorsFrom accepts a list of names, a list of objects carrying
// "name" or "firstName"/"lastName", a JSON array encoded as a string, or a
// comma separated string.
func instructorsFrom(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return cleanNames(val)
	case []byte:
		return instructorsFrom(string(val))
	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "[") {
			var items []any
			if err := json.Unmarshal([]byte(s), &items); err == nil {
				return instructorsFrom(items)
			}
		}
		return cleanNames(strings.Split(s, ","))
	case []any:
		names := make([]string, 0, len(val))
		for _, item := range val {
			names = append(names, instructorName(item))
		}
		return cleanNames(names)
	default:
		return nil
	}
}

func instructorName(item any) string {
	switch it := item.(type) {
	case string:
		return it
	case map[string]any:
		if name := utils.ToString(it["name"]); strings.TrimSpace(name) != "" {
			return name
		}
		return utils.ToString(it["firstName"]) + " " + utils.ToString(it["lastName"])
	default:
		return utils.ToString(it)
	}
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = utils.CollapseSpaces(name); name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ------------------- Default Adapters -------------------

// MapAdapter handles maps with string keys of any value type.
type MapAdapter struct{}

func (MapAdapter) CanHandle(value any) bool {
	if value == nil {
		return false
	}
	return reflect.ValueOf(value).Kind() == reflect.Map
}

func (MapAdapter) Adapt(_ context.Context, value any) (CourseRecord, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return CourseRecord{}, fmt.Errorf("map adapter requires map, got %T", value)
	}
	rec := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		if iter.Key().Kind() != reflect.String {
			return CourseRecord{}, fmt.Errorf("map adapter requires string keys, got %T", value)
		}
		rec[iter.Key().String()] = iter.Value().Interface()
	}
	return RecordFromMap(rec)
}

// StructAdapter handles structs (or pointers to structs) whose JSON form
// carries the dataset keys.
type StructAdapter struct{}

func (StructAdapter) CanHandle(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

func (StructAdapter) Adapt(_ context.Context, value any) (CourseRecord, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return CourseRecord{}, fmt.Errorf("struct adapter marshal error: %w", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return CourseRecord{}, fmt.Errorf("struct adapter unmarshal error: %w", err)
	}
	return RecordFromMap(rec)
}

func init() {
	RegisterRecordAdapter(MapAdapter{})
	RegisterRecordAdapter(StructAdapter{})
}

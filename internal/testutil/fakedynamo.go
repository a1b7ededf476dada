// Package testutil provides in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// FakeDynamo is a small in-memory DynamoDB that enforces key schemas the way the
// real service does: a key naming the wrong attribute fails with ValidationException.
// It understands the expressions built by the store gateway only.
type FakeDynamo struct {
	mu     sync.Mutex
	tables map[string]*fakeTable

	// Errors, when set for an operation name ("GetItem", "PutItem", ...), is returned instead of running it.
	Errors map[string]error
	Calls  map[string]int
}

type fakeTable struct {
	hashKey  string
	rangeKey string
	items    map[string]map[string]types.AttributeValue
}

// NewFakeDynamo returns an empty fake with no tables.
func NewFakeDynamo() *FakeDynamo {
	return &FakeDynamo{
		tables: map[string]*fakeTable{},
		Errors: map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table with a hash key and an optional range key.
func (f *FakeDynamo) CreateTable(name, hashKey, rangeKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &fakeTable{
		hashKey:  hashKey,
		rangeKey: rangeKey,
		items:    map[string]map[string]types.AttributeValue{},
	}
}

// Seed stores item as-is. It panics if the item lacks the table's key attributes.
func (f *FakeDynamo) Seed(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[table]
	id, err := t.idFromItem(item)
	if err != nil {
		panic(err)
	}
	t.items[id] = item
}

// Items returns a copy of every item in table, ordered by key.
func (f *FakeDynamo) Items(table string) []map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table].sorted()
}

func (f *FakeDynamo) begin(op string) error {
	f.Calls[op]++
	if err := f.Errors[op]; err != nil {
		return err
	}
	return nil
}

func (f *FakeDynamo) table(name *string) (*fakeTable, error) {
	if name == nil {
		return nil, validationError("TableName is required")
	}
	t, ok := f.tables[*name]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Requested resource not found"}
	}
	return t, nil
}

func (f *FakeDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.idFromKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[id]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *FakeDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PutItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.idFromItem(params.Item)
	if err != nil {
		return nil, err
	}
	t.items[id] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

// UpdateItem supports "SET #a = :a, #b = :b" expressions and upserts like DynamoDB.
func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.idFromKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[id]
	if !ok {
		item = copyItem(params.Key)
	}

	if params.UpdateExpression == nil || !strings.HasPrefix(*params.UpdateExpression, "SET ") {
		return nil, validationError("unsupported update expression")
	}
	for _, clause := range strings.Split(strings.TrimPrefix(*params.UpdateExpression, "SET "), ",") {
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			return nil, validationError("invalid update clause: " + clause)
		}
		name := strings.TrimSpace(parts[0])
		if resolved, ok := params.ExpressionAttributeNames[name]; ok {
			name = resolved
		}
		value, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, validationError("missing expression attribute value in " + clause)
		}
		if name == t.hashKey || name == t.rangeKey {
			return nil, validationError("Cannot update attribute " + name + ". This attribute is part of the key")
		}
		item[name] = value
	}
	t.items[id] = item
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// Query supports a single "#pk = :pk" key condition on the hash key.
func (f *FakeDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Query"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil {
		return nil, validationError("KeyConditionExpression is required")
	}
	parts := strings.SplitN(*params.KeyConditionExpression, "=", 2)
	if len(parts) != 2 {
		return nil, validationError("unsupported key condition")
	}
	name := strings.TrimSpace(parts[0])
	if resolved, ok := params.ExpressionAttributeNames[name]; ok {
		name = resolved
	}
	if name != t.hashKey {
		return nil, validationError("Query condition missed key schema element: " + t.hashKey)
	}
	want, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])].(*types.AttributeValueMemberS)
	if !ok {
		return nil, validationError("key condition value must be a string")
	}

	var out []map[string]types.AttributeValue
	for _, item := range t.sorted() {
		if v, ok := item[t.hashKey].(*types.AttributeValueMemberS); ok && v.Value == want.Value {
			out = append(out, item)
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *FakeDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("Scan"); err != nil {
		return nil, err
	}
	t, err := f.table(params.TableName)
	if err != nil {
		return nil, err
	}
	items := t.sorted()
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (t *fakeTable) keyNames() []string {
	if t.rangeKey == "" {
		return []string{t.hashKey}
	}
	return []string{t.hashKey, t.rangeKey}
}

func (t *fakeTable) idFromKey(key map[string]types.AttributeValue) (string, error) {
	if len(key) != len(t.keyNames()) {
		return "", validationError("The provided key element does not match the schema")
	}
	return t.idFromItem(key)
}

func (t *fakeTable) idFromItem(item map[string]types.AttributeValue) (string, error) {
	var parts []string
	for _, k := range t.keyNames() {
		v, ok := item[k].(*types.AttributeValueMemberS)
		if !ok {
			if _, present := item[k]; present {
				return "", validationError("The provided key element does not match the schema")
			}
			if len(item) > len(t.keyNames()) {
				return "", validationError(fmt.Sprintf("One or more parameter values were invalid: Missing the key %s in the item", k))
			}
			return "", validationError("The provided key element does not match the schema")
		}
		parts = append(parts, v.Value)
	}
	return strings.Join(parts, "\x00"), nil
}

func (t *fakeTable) sorted() []map[string]types.AttributeValue {
	ids := make([]string, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyItem(t.items[id]))
	}
	return out
}

func copyItem(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func validationError(msg string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: msg}
}

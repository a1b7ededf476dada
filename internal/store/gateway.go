// Package store is the gateway to the DynamoDB tables. Records are kept as loose
// attribute maps because the tables carry several historical shapes.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/willie84/currencyexchangenetwork/internal/aws"
)

// Record is an unmarshalled DynamoDB item.
type Record map[string]interface{}

// Key names the primary key attributes of an item. All key values are strings.
type Key map[string]string

// Gateway performs single-item and single-partition operations. There are no multi-item transactions.
type Gateway struct {
	client aws.DynamoDBAPI
}

// NewGateway returns a Gateway using client.
func NewGateway(client aws.DynamoDBAPI) *Gateway {
	return &Gateway{client: client}
}

// Get fetches an item by key. Returns (nil, nil) if not found.
func (g *Gateway) Get(ctx context.Context, table string, key Key) (Record, error) {
	out, err := g.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &table,
		Key:       key.attributes(),
	})
	if err != nil {
		return nil, wrap("get item", table, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return unmarshalRecord("get item", table, out.Item)
}

// Put writes item, replacing any existing item with the same key.
// item may be a struct with dynamodbav tags or a map.
func (g *Gateway) Put(ctx context.Context, table string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return &StoreError{Op: "put item", Table: table, Err: fmt.Errorf("marshal item: %w", err)}
	}
	_, err = g.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &table,
		Item:      av,
	})
	return wrap("put item", table, err)
}

// Update sets fields on the item at key. Like DynamoDB itself it creates the item if absent.
func (g *Gateway) Update(ctx context.Context, table string, key Key, fields Record) error {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	expr := "SET "
	for i, name := range names {
		v, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return &StoreError{Op: "update item", Table: table, Err: fmt.Errorf("marshal %s: %w", name, err)}
		}
		if i > 0 {
			expr += ", "
		}
		// every attribute goes through a placeholder; "status" is a reserved word
		expr += fmt.Sprintf("#f%d = :v%d", i, i)
		exprNames[fmt.Sprintf("#f%d", i)] = name
		exprValues[fmt.Sprintf(":v%d", i)] = v
	}

	_, err := g.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &table,
		Key:                       key.attributes(),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	return wrap("update item", table, err)
}

// Query returns every item in the partition partitionKey = value, following pagination.
func (g *Gateway) Query(ctx context.Context, table, partitionKey, value string) ([]Record, error) {
	input := &dyn.QueryInput{
		TableName:                &table,
		KeyConditionExpression:   awsString("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": partitionKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: value},
		},
	}

	records := []Record{}
	p := dyn.NewQueryPaginator(g.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrap("query", table, err)
		}
		for _, item := range page.Items {
			rec, err := unmarshalRecord("query", table, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// Scan returns every item in table, following pagination.
func (g *Gateway) Scan(ctx context.Context, table string) ([]Record, error) {
	records := []Record{}
	p := dyn.NewScanPaginator(g.client, &dyn.ScanInput{TableName: &table})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrap("scan", table, err)
		}
		for _, item := range page.Items {
			rec, err := unmarshalRecord("scan", table, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (k Key) attributes() map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(k))
	for name, value := range k {
		out[name] = &types.AttributeValueMemberS{Value: value}
	}
	return out
}

func unmarshalRecord(op, table string, item map[string]types.AttributeValue) (Record, error) {
	var rec Record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, &StoreError{Op: op, Table: table, Err: fmt.Errorf("unmarshal item: %w", err)}
	}
	return rec, nil
}

func awsString(s string) *string { return &s }

package employee

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	types "github.com/yungbote/employee-directory/internal/domain"
)

// fakeDynamo understands the handful of condition expressions the store
// issues. It pages scans two items at a time to exercise pagination.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]int64
	calls map[string]int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]int64{}, calls: map[string]int{}}
}

func attrString(av ddbtypes.AttributeValue) string {
	if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func attrNumber(av ddbtypes.AttributeValue) int64 {
	if n, ok := av.(*ddbtypes.AttributeValueMemberN); ok {
		v, _ := strconv.ParseInt(n.Value, 10, 64)
		return v
	}
	return 0
}

func conditionFailed() error {
	return &ddbtypes.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Scan"]++
	names := make([]string, 0, len(f.items))
	for name := range f.items {
		names = append(names, name)
	}
	sort.Strings(names)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := attrString(in.ExclusiveStartKey["name"])
		for i, n := range names {
			if n == last {
				start = i + 1
			}
		}
	}
	end := start + 2
	if end > len(names) {
		end = len(names)
	}
	out := &dynamodb.ScanOutput{}
	for _, name := range names[start:end] {
		item, err := attributevalue.MarshalMap(types.Employee{Name: name, Value: f.items[name]})
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, item)
	}
	if end < len(names) {
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{
			"name": &ddbtypes.AttributeValueMemberS{Value: names[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutItem"]++
	name := attrString(in.Item["name"])
	if _, ok := f.items[name]; ok && aws.ToString(in.ConditionExpression) == "attribute_not_exists(#name)" {
		return nil, conditionFailed()
	}
	f.items[name] = attrNumber(in.Item["value"])
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateItem"]++
	name := attrString(in.Key["name"])
	if _, ok := f.items[name]; !ok {
		return nil, conditionFailed()
	}
	f.items[name] = attrNumber(in.ExpressionAttributeValues[":value"])
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteItem"]++
	name := attrString(in.Key["name"])
	if _, ok := f.items[name]; !ok {
		return nil, conditionFailed()
	}
	delete(f.items, name)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["TransactWriteItems"]++
	if len(in.TransactItems) > maxTransactItems {
		return nil, fmt.Errorf("ValidationException: too many items")
	}

	next := make(map[string]int64, len(f.items))
	for k, v := range f.items {
		next[k] = v
	}
	cancel := func() error {
		return &ddbtypes.TransactionCanceledException{Message: aws.String("Transaction cancelled")}
	}
	for _, it := range in.TransactItems {
		switch {
		case it.Delete != nil:
			name := attrString(it.Delete.Key["name"])
			if _, ok := f.items[name]; !ok {
				return nil, cancel()
			}
			delete(next, name)
		case it.Put != nil:
			name := attrString(it.Put.Item["name"])
			if _, ok := f.items[name]; ok {
				return nil, cancel()
			}
			next[name] = attrNumber(it.Put.Item["value"])
		case it.Update != nil:
			name := attrString(it.Update.Key["name"])
			cur, ok := f.items[name]
			if !ok || cur > attrNumber(it.Update.ExpressionAttributeValues[":ceiling"]) {
				return nil, cancel()
			}
			next[name] = cur + attrNumber(it.Update.ExpressionAttributeValues[":delta"])
		}
	}
	f.items = next
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func TestDynamoRepoRenameUsesTransaction(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	repo := NewDynamoRepo(fake, "employees", testLogger(t))

	if _, err := repo.Insert(ctx, types.Employee{Name: "Ann", Value: 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	n, err := repo.UpdateByKey(ctx, "Ann", types.Employee{Name: "Anna", Value: 2})
	if err != nil || n != 1 {
		t.Fatalf("UpdateByKey: n=%d err=%v", n, err)
	}
	if fake.calls["TransactWriteItems"] != 1 || fake.calls["UpdateItem"] != 0 {
		t.Fatalf("rename should be transactional, calls=%v", fake.calls)
	}
	n, err = repo.UpdateByKey(ctx, "Anna", types.Employee{Name: "Anna", Value: 3})
	if err != nil || n != 1 {
		t.Fatalf("same-name UpdateByKey: n=%d err=%v", n, err)
	}
	if fake.calls["UpdateItem"] != 1 {
		t.Fatalf("same-name update should use UpdateItem, calls=%v", fake.calls)
	}
}

func TestDynamoRepoIncrementTransactionLimit(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	for i := 0; i <= maxTransactItems; i++ {
		fake.items[fmt.Sprintf("Emp%03d", i)] = 0
	}
	repo := NewDynamoRepo(fake, "employees", testLogger(t))

	_, err := repo.ApplyIncrement(ctx, types.DefaultTieredIncrement())
	if !types.IsCode(err, types.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if fake.calls["TransactWriteItems"] != 0 {
		t.Fatalf("no transaction should be attempted, calls=%v", fake.calls)
	}
}

package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// maxTransactItems is DynamoDB's per-transaction item limit.
const maxTransactItems = 100

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// NewDynamoClient builds a client from the default AWS credential chain.
// Endpoint overrides the service URL (DynamoDB Local).
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(cfg.Region) != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	}), nil
}

// EnsureDynamoTable creates the table keyed by name when it does not exist.
func EnsureDynamoTable(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return nil
	}
	var notFound *ddbtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", table, err)
	}
	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String("name"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String("name"), KeyType: ddbtypes.KeyTypeHash},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
	})
	var inUse *ddbtypes.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

type dynamoRepo struct {
	client DynamoAPI
	table  string
	log    *logger.Logger
}

// NewDynamoRepo stores one item per record with "name" as the partition key.
func NewDynamoRepo(client DynamoAPI, table string, baseLog *logger.Logger) EmployeeRepo {
	return &dynamoRepo{
		client: client,
		table:  table,
		log:    baseLog.With("repo", "DynamoEmployeeRepo", "table", table),
	}
}

var nameAttr = map[string]string{"#name": "name"}

func nameAndValueAttrs() map[string]string {
	return map[string]string{"#name": "name", "#value": "value"}
}

func (r *dynamoRepo) key(name string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"name": &ddbtypes.AttributeValueMemberS{Value: name},
	}
}

func numberAttr(v int64) *ddbtypes.AttributeValueMemberN {
	return &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func (r *dynamoRepo) List(ctx context.Context) ([]types.Employee, error) {
	var results []types.Employee
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, types.MapStoreError("employee.list", err)
		}
		var batch []types.Employee
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, types.Wrap(types.CodeInternal, "employee.list", err)
		}
		results = append(results, batch...)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (r *dynamoRepo) Insert(ctx context.Context, rec types.Employee) (types.Employee, error) {
	if err := checkRange("employee.insert", rec.Value); err != nil {
		return types.Employee{}, err
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return types.Employee{}, types.Wrap(types.CodeInternal, "employee.insert", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#name)"),
		ExpressionAttributeNames: nameAttr,
	})
	if err != nil {
		return types.Employee{}, types.MapStoreError("employee.insert", err)
	}
	return rec, nil
}

func (r *dynamoRepo) UpdateByKey(ctx context.Context, key types.EmployeeKey, rec types.Employee) (int64, error) {
	if err := checkRange("employee.update", rec.Value); err != nil {
		return 0, err
	}
	if rec.Name == key.String() {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                aws.String(r.table),
			Key:                      r.key(rec.Name),
			UpdateExpression:         aws.String("SET #value = :value"),
			ConditionExpression:      aws.String("attribute_exists(#name)"),
			ExpressionAttributeNames: nameAndValueAttrs(),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":value": numberAttr(rec.Value),
			},
		})
		return affectedOrError("employee.update", err)
	}

	// A rename moves the item to a new partition key: delete the old item and
	// put the new one in the same transaction.
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return 0, types.Wrap(types.CodeInternal, "employee.update", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []ddbtypes.TransactWriteItem{
			{
				Delete: &ddbtypes.Delete{
					TableName:                aws.String(r.table),
					Key:                      r.key(key.String()),
					ConditionExpression:      aws.String("attribute_exists(#name)"),
					ExpressionAttributeNames: nameAttr,
				},
			},
			{
				Put: &ddbtypes.Put{
					TableName:                aws.String(r.table),
					Item:                     item,
					ConditionExpression:      aws.String("attribute_not_exists(#name)"),
					ExpressionAttributeNames: nameAttr,
				},
			},
		},
	})
	return affectedOrError("employee.update", err)
}

func (r *dynamoRepo) DeleteByKey(ctx context.Context, key types.EmployeeKey) (int64, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.table),
		Key:                      r.key(key.String()),
		ConditionExpression:      aws.String("attribute_exists(#name)"),
		ExpressionAttributeNames: nameAttr,
	})
	return affectedOrError("employee.delete", err)
}

// ApplyIncrement writes every delta in one transaction. Stores larger than
// the transaction limit are rejected rather than partially updated.
func (r *dynamoRepo) ApplyIncrement(ctx context.Context, inc types.TieredIncrement) (int64, error) {
	current, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(current) == 0 {
		return 0, nil
	}
	if len(current) > maxTransactItems {
		return 0, types.NewError(types.CodeInvariantViolation, "employee.increment",
			fmt.Sprintf("%d records exceed the %d item transaction limit", len(current), maxTransactItems), nil)
	}
	if _, err := inc.Apply(current); err != nil {
		return 0, err
	}

	items := make([]ddbtypes.TransactWriteItem, 0, len(current))
	for _, rec := range current {
		delta := inc.DeltaFor(rec.Name)
		items = append(items, ddbtypes.TransactWriteItem{
			Update: &ddbtypes.Update{
				TableName:                aws.String(r.table),
				Key:                      r.key(rec.Name),
				UpdateExpression:         aws.String("SET #value = #value + :delta"),
				ConditionExpression:      aws.String("attribute_exists(#name) AND #value <= :ceiling"),
				ExpressionAttributeNames: nameAndValueAttrs(),
				ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
					":delta":   numberAttr(delta),
					":ceiling": numberAttr(types.MaxValue - delta),
				},
			},
		})
	}
	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return 0, types.MapStoreError("employee.increment", err)
	}
	r.log.Debug("Applied tiered increment", "rows", len(items))
	return int64(len(items)), nil
}

// affectedOrError reports a failed write condition as zero affected rows.
func affectedOrError(op string, err error) (int64, error) {
	if err == nil {
		return 1, nil
	}
	var condErr *ddbtypes.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return 0, nil
	}
	var txErr *ddbtypes.TransactionCanceledException
	if errors.As(err, &txErr) {
		return 0, nil
	}
	return 0, types.MapStoreError(op, err)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"book-reader-bot/internal/domain"
)

const (
	pkPrefixReader = "READER#"
	skSession      = "SESSION#"
	ttlDuration    = 30 * 24 * time.Hour // idle sessions expire after 30 days
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Client stores reader sessions in a DynamoDB table, one item per reader.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// readerPK returns the DynamoDB partition key for a reader.
func readerPK(reader domain.ReaderID) string {
	return pkPrefixReader + strconv.FormatInt(int64(reader), 10)
}

func (c *Client) key(reader domain.ReaderID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: readerPK(reader)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

// ttlValue returns a Unix timestamp 30 days after the current time.
func (c *Client) ttlValue() string {
	return strconv.FormatInt(c.now().Add(ttlDuration).Unix(), 10)
}

// Get reads the session for reader. The boolean is false when the reader has none.
func (c *Client) Get(ctx context.Context, reader domain.ReaderID) (domain.ReaderSession, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(reader),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ReaderSession{}, false, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ReaderSession{}, false, nil
	}
	s, err := itemToSession(out.Item)
	if err != nil {
		return domain.ReaderSession{}, false, fmt.Errorf("repository: Get decode: %w", err)
	}
	return s, true, nil
}

// Put replaces the reading fields of the session. lastActive is only written
// when set, so a reset keeps the reader's activity history.
func (c *Client) Put(ctx context.Context, session domain.ReaderSession) error {
	expr := "SET readerId = :rid, documentRef = :ref, documentName = :name, #offset = :offset, awaitingWord = :aw, #ttl = :ttl"
	values := map[string]types.AttributeValue{
		":rid":    &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(session.ReaderID), 10)},
		":ref":    &types.AttributeValueMemberS{Value: session.DocumentRef},
		":name":   &types.AttributeValueMemberS{Value: session.DocumentName},
		":offset": &types.AttributeValueMemberN{Value: strconv.FormatInt(session.Offset, 10)},
		":aw":     &types.AttributeValueMemberBOOL{Value: session.AwaitingWord},
		":ttl":    &types.AttributeValueMemberN{Value: c.ttlValue()},
	}
	if !session.LastActive.IsZero() {
		expr += ", lastActive = :la"
		values[":la"] = &types.AttributeValueMemberS{Value: session.LastActive.UTC().Format(time.RFC3339Nano)}
	}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       c.key(session.ReaderID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  map[string]string{"#offset": "offset", "#ttl": "ttl"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

// UpdateOffset moves the read position of an existing session.
func (c *Client) UpdateOffset(ctx context.Context, reader domain.ReaderID, offset int64) error {
	err := c.updateExisting(ctx, reader, "SET #offset = :offset, #ttl = :ttl",
		map[string]string{"#offset": "offset", "#ttl": "ttl"},
		map[string]types.AttributeValue{
			":offset": &types.AttributeValueMemberN{Value: strconv.FormatInt(offset, 10)},
			":ttl":    &types.AttributeValueMemberN{Value: c.ttlValue()},
		})
	if err != nil {
		return fmt.Errorf("repository: UpdateOffset: %w", err)
	}
	return nil
}

// SetAwaitingWord toggles the pending word-lookup flag of an existing session.
func (c *Client) SetAwaitingWord(ctx context.Context, reader domain.ReaderID, awaiting bool) error {
	err := c.updateExisting(ctx, reader, "SET awaitingWord = :aw",
		nil,
		map[string]types.AttributeValue{
			":aw": &types.AttributeValueMemberBOOL{Value: awaiting},
		})
	if err != nil {
		return fmt.Errorf("repository: SetAwaitingWord: %w", err)
	}
	return nil
}

// Touch records reader activity, creating the item on first contact.
func (c *Client) Touch(ctx context.Context, reader domain.ReaderID, at time.Time) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(c.tableName),
		Key:                      c.key(reader),
		UpdateExpression:         aws.String("SET readerId = :rid, lastActive = :la, #ttl = :ttl"),
		ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(reader), 10)},
			":la":  &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
			":ttl": &types.AttributeValueMemberN{Value: c.ttlValue()},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Touch: %w", err)
	}
	return nil
}

// List scans every session item in the table, following pagination.
func (c *Client) List(ctx context.Context) ([]domain.ReaderSession, error) {
	var (
		out      []domain.ReaderSession
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(c.tableName),
			FilterExpression: aws.String("begins_with(PK, :prefix) AND SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: pkPrefixReader},
				":sk":     &types.AttributeValueMemberS{Value: skSession},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: List scan: %w", err)
		}
		for _, item := range page.Items {
			s, err := itemToSession(item)
			if err != nil {
				return nil, fmt.Errorf("repository: List decode: %w", err)
			}
			out = append(out, s)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

func (c *Client) updateExisting(ctx context.Context, reader domain.ReaderID, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       c.key(reader),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return domain.ErrSessionNotFound
	}
	return err
}

// itemToSession converts a DynamoDB attribute map to a ReaderSession.
// Items created by Touch carry no document attributes yet.
func itemToSession(item map[string]types.AttributeValue) (domain.ReaderSession, error) {
	rid, err := int64Attr(item, "readerId")
	if err != nil {
		return domain.ReaderSession{}, err
	}
	s := domain.NewSession(domain.ReaderID(rid))
	s.DocumentRef, _ = strAttr(item, "documentRef")
	s.DocumentName, _ = strAttr(item, "documentName")
	if _, ok := item["offset"]; ok {
		if s.Offset, err = int64Attr(item, "offset"); err != nil {
			return domain.ReaderSession{}, err
		}
	}
	if v, ok := item["awaitingWord"].(*types.AttributeValueMemberBOOL); ok {
		s.AwaitingWord = v.Value
	}
	if raw, err := strAttr(item, "lastActive"); err == nil && raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.ReaderSession{}, fmt.Errorf("repository: parse attribute %q: %w", "lastActive", err)
		}
		s.LastActive = ts
	}
	return s, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

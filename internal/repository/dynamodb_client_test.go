package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"book-reader-bot/internal/domain"
)

type fakeDynamo struct {
	getOut      *dynamodb.GetItemOutput
	getErr      error
	updateErr   error
	scanPages   []*dynamodb.ScanOutput
	scanErr     error
	lastGetIn   *dynamodb.GetItemInput
	updateIns   []*dynamodb.UpdateItemInput
	scanIns     []*dynamodb.ScanInput
	scanCallIdx int
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetIn = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateIns = append(f.updateIns, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanIns = append(f.scanIns, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := f.scanPages[f.scanCallIdx]
	f.scanCallIdx++
	return out, nil
}

func sessionItem(reader string, ref string, offset string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: "READER#" + reader},
		"SK":           &types.AttributeValueMemberS{Value: skSession},
		"readerId":     &types.AttributeValueMemberN{Value: reader},
		"documentRef":  &types.AttributeValueMemberS{Value: ref},
		"documentName": &types.AttributeValueMemberS{Value: "book.txt"},
		"offset":       &types.AttributeValueMemberN{Value: offset},
		"awaitingWord": &types.AttributeValueMemberBOOL{Value: true},
		"lastActive":   &types.AttributeValueMemberS{Value: "2026-10-16T08:00:00Z"},
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestNew_ValidatesArguments(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, "  ")
	require.Error(t, err)
}

func TestGet_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: sessionItem("42", "books/42_book.txt", "4000")}}
	c := mustNewClient(t, db)

	s, ok, err := c.Get(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.ReaderID(42), s.ReaderID)
	require.Equal(t, "books/42_book.txt", s.DocumentRef)
	require.Equal(t, "book.txt", s.DocumentName)
	require.EqualValues(t, 4000, s.Offset)
	require.True(t, s.AwaitingWord)
	require.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), s.LastActive)

	require.True(t, *db.lastGetIn.ConsistentRead)
	pk := db.lastGetIn.Key["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "READER#42", pk.Value)
}

func TestGet_Missing(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, ok, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGet_TouchedOnlyItem(t *testing.T) {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "READER#7"},
		"SK":         &types.AttributeValueMemberS{Value: skSession},
		"readerId":   &types.AttributeValueMemberN{Value: "7"},
		"lastActive": &types.AttributeValueMemberS{Value: "2026-10-16T08:00:00Z"},
	}
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}})
	s, ok, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateNoDocument, s.State())
}

func TestGet_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("boom")})
	_, _, err := c.Get(context.Background(), 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Get get item")

	bad := sessionItem("7", "r", "not-a-number")
	c = mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: bad}})
	_, _, err = c.Get(context.Background(), 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Get decode")
}

func TestPut_WritesReadingFields(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.Put(context.Background(), domain.ReaderSession{ReaderID: 42, DocumentRef: "ref", DocumentName: "a.txt"})
	require.NoError(t, err)
	require.Len(t, db.updateIns, 1)
	in := db.updateIns[0]
	require.Nil(t, in.ConditionExpression)
	require.NotContains(t, *in.UpdateExpression, "lastActive")
	require.Equal(t, "ref", in.ExpressionAttributeValues[":ref"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "0", in.ExpressionAttributeValues[":offset"].(*types.AttributeValueMemberN).Value)

	err = c.Put(context.Background(), domain.ReaderSession{ReaderID: 42, LastActive: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Contains(t, *db.updateIns[1].UpdateExpression, "lastActive = :la")
}

func TestUpdateOffset_ConditionalOnExistingSession(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	require.NoError(t, c.UpdateOffset(context.Background(), 42, 2000))
	in := db.updateIns[0]
	require.Equal(t, "attribute_exists(PK)", *in.ConditionExpression)
	require.Equal(t, "2000", in.ExpressionAttributeValues[":offset"].(*types.AttributeValueMemberN).Value)
}

func TestUpdateOffset_UnknownReader(t *testing.T) {
	db := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	c := mustNewClient(t, db)

	err := c.UpdateOffset(context.Background(), 42, 2000)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = c.SetAwaitingWord(context.Background(), 42, true)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateOffset_ApiError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{updateErr: errors.New("throttled")})
	err := c.UpdateOffset(context.Background(), 42, 2000)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrSessionNotFound)
	require.Contains(t, err.Error(), "UpdateOffset")
}

func TestTouch_Upserts(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))
	require.NoError(t, c.Touch(context.Background(), 42, at))
	in := db.updateIns[0]
	require.Nil(t, in.ConditionExpression)
	require.Equal(t, "2026-10-16T09:00:00Z", in.ExpressionAttributeValues[":la"].(*types.AttributeValueMemberS).Value)
}

func TestList_FollowsPagination(t *testing.T) {
	lastKey := map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "READER#1"}}
	db := &fakeDynamo{scanPages: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{sessionItem("1", "a", "0")}, LastEvaluatedKey: lastKey},
		{Items: []map[string]types.AttributeValue{sessionItem("2", "b", "10")}},
	}}
	c := mustNewClient(t, db)

	sessions, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, domain.ReaderID(1), sessions[0].ReaderID)
	require.Equal(t, domain.ReaderID(2), sessions[1].ReaderID)
	require.Len(t, db.scanIns, 2)
	require.Nil(t, db.scanIns[0].ExclusiveStartKey)
	require.Equal(t, lastKey, db.scanIns[1].ExclusiveStartKey)
}

func TestList_ScanError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{scanErr: errors.New("boom")})
	_, err := c.List(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "List scan")
}

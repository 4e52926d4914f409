package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "SESSION#"
	skMeta   = "META"
	skDeck   = "DECK"
	skChat   = "CHAT#"
	skExport = "EXPORT#"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25
)

// DynamoStore implements SessionStore using AWS DynamoDB.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ SessionStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// --- Internal helpers ---

// sessionPK returns the partition key for a session.
func sessionPK(sessionID string) string {
	return pkPrefix + sessionID
}

// expiresAt returns the Unix epoch timestamp for record expiration (now + SessionTTL).
func expiresAt() int64 {
	return time.Now().Add(SessionTTL).Unix()
}

// putItem marshals a domain object and writes it to DynamoDB with PK, SK, and TTL.
// The domain object should use dynamodbav:"-" for fields derived from PK/SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// Add key and TTL attributes (overwrite any conflicting keys from the data).
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt(), 10)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item from DynamoDB and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

// deleteItem removes a single item from DynamoDB by PK/SK.
func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// batchDeleteKeys deletes multiple items by their PK/SK keys.
// Handles DynamoDB's 25-item-per-batch limit automatically.
func (s *DynamoStore) batchDeleteKeys(ctx context.Context, keys []map[string]types.AttributeValue) error {
	for i := 0; i < len(keys); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(keys) {
			end = len(keys)
		}

		var requests []types.WriteRequest
		for _, key := range keys[i:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem delete (%d items): %w", len(requests), err)
		}

		// Note: UnprocessedItems are not retried here. With PAY_PER_REQUEST
		// billing and low throughput, unprocessed items are extremely rare.
		// The 24-hour TTL provides a safety net for any missed deletes.
	}
	return nil
}

// --- Session operations ---

func (s *DynamoStore) PutSession(ctx context.Context, session *Session) error {
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}

	if err := s.putItem(ctx, sessionPK(session.ID), skMeta, session); err != nil {
		return fmt.Errorf("put session %s: %w", session.ID, err)
	}

	log.Debug().Str("sessionId", session.ID).Str("status", session.Status).Msg("Session persisted to DynamoDB")
	return nil
}

func (s *DynamoStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	found, err := s.getItem(ctx, sessionPK(sessionID), skMeta, &session)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if !found {
		return nil, nil
	}

	session.ID = sessionID
	return &session, nil
}

// DeleteSession removes the META record, the deck, and all job records for
// the session in one sweep. The deck's lifecycle is bound to its session.
func (s *DynamoStore) DeleteSession(ctx context.Context, sessionID string) error {
	pk := sessionPK(sessionID)

	queryInput := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}

	var keysToDelete []map[string]types.AttributeValue

	// Paginate through all session items — DynamoDB returns up to 1MB per Query.
	for {
		result, err := s.client.Query(ctx, queryInput)
		if err != nil {
			return fmt.Errorf("query session %s for deletion: %w", sessionID, err)
		}
		for _, item := range result.Items {
			keysToDelete = append(keysToDelete, map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			})
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		queryInput.ExclusiveStartKey = result.LastEvaluatedKey
	}

	if len(keysToDelete) == 0 {
		return nil
	}
	if err := s.batchDeleteKeys(ctx, keysToDelete); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}

	log.Info().Str("sessionId", sessionID).Int("deleted", len(keysToDelete)).Msg("Session deleted from DynamoDB")
	return nil
}

// --- Deck operations ---

func (s *DynamoStore) PutDeck(ctx context.Context, sessionID string, rec *DeckRecord) error {
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = time.Now().Unix()
	}

	if err := s.putItem(ctx, sessionPK(sessionID), skDeck, rec); err != nil {
		return fmt.Errorf("put deck %s: %w", sessionID, err)
	}

	log.Debug().
		Str("sessionId", sessionID).
		Int("slides", len(rec.Slides)).
		Msg("Deck persisted")
	return nil
}

func (s *DynamoStore) GetDeck(ctx context.Context, sessionID string) (*DeckRecord, error) {
	var rec DeckRecord
	found, err := s.getItem(ctx, sessionPK(sessionID), skDeck, &rec)
	if err != nil {
		return nil, fmt.Errorf("get deck %s: %w", sessionID, err)
	}
	if !found {
		return nil, nil
	}

	rec.SessionID = sessionID
	return &rec, nil
}

func (s *DynamoStore) DeleteDeck(ctx context.Context, sessionID string) error {
	if err := s.deleteItem(ctx, sessionPK(sessionID), skDeck); err != nil {
		return fmt.Errorf("delete deck %s: %w", sessionID, err)
	}

	log.Debug().Str("sessionId", sessionID).Msg("Deck deleted")
	return nil
}

// --- Chat job operations ---

func (s *DynamoStore) PutChatJob(ctx context.Context, sessionID string, job *ChatJob) error {
	sk := skChat + job.ID
	if err := s.putItem(ctx, sessionPK(sessionID), sk, job); err != nil {
		return fmt.Errorf("put chat job %s/%s: %w", sessionID, job.ID, err)
	}

	log.Debug().
		Str("sessionId", sessionID).
		Str("jobId", job.ID).
		Str("status", job.Status).
		Int("progress", job.Progress).
		Msg("Chat job persisted")
	return nil
}

func (s *DynamoStore) GetChatJob(ctx context.Context, sessionID, jobID string) (*ChatJob, error) {
	var job ChatJob
	found, err := s.getItem(ctx, sessionPK(sessionID), skChat+jobID, &job)
	if err != nil {
		return nil, fmt.Errorf("get chat job %s/%s: %w", sessionID, jobID, err)
	}
	if !found {
		return nil, nil
	}

	job.ID = jobID
	job.SessionID = sessionID
	return &job, nil
}

// --- Export job operations ---

func (s *DynamoStore) PutExportJob(ctx context.Context, sessionID string, job *ExportJob) error {
	sk := skExport + job.ID
	if err := s.putItem(ctx, sessionPK(sessionID), sk, job); err != nil {
		return fmt.Errorf("put export job %s/%s: %w", sessionID, job.ID, err)
	}

	log.Debug().
		Str("sessionId", sessionID).
		Str("jobId", job.ID).
		Str("status", job.Status).
		Int("progress", job.Progress).
		Int("total", job.Total).
		Msg("Export job persisted")
	return nil
}

func (s *DynamoStore) GetExportJob(ctx context.Context, sessionID, jobID string) (*ExportJob, error) {
	var job ExportJob
	found, err := s.getItem(ctx, sessionPK(sessionID), skExport+jobID, &job)
	if err != nil {
		return nil, fmt.Errorf("get export job %s/%s: %w", sessionID, jobID, err)
	}
	if !found {
		return nil, nil
	}

	job.ID = jobID
	job.SessionID = sessionID
	return &job, nil
}

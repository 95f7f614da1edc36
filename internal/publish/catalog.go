package publish

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"
)

// Status is the state of an episode in the catalog.
type Status string

const (
	StatusSubmitted    Status = "submitted"
	StatusExtracting   Status = "extracting"
	StatusScripting    Status = "scripting"
	StatusSynthesizing Status = "synthesizing"
	StatusAssembling   Status = "assembling"
	StatusUploading    Status = "uploading"
	StatusComplete     Status = "complete"
	StatusFailed       Status = "failed"
)

// Episode is the DynamoDB record of one podcast.
type Episode struct {
	PK              string  `dynamodbav:"PK" json:"-"`
	SK              string  `dynamodbav:"SK" json:"-"`
	GSI1PK          string  `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK          string  `dynamodbav:"GSI1SK" json:"-"`
	ID              string  `dynamodbav:"episodeId" json:"id"`
	Title           string  `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Source          string  `dynamodbav:"source,omitempty" json:"source,omitempty"`
	LLMProvider     string  `dynamodbav:"llmProvider,omitempty" json:"llm_provider,omitempty"`
	TTSProvider     string  `dynamodbav:"ttsProvider,omitempty" json:"tts_provider,omitempty"`
	Language        string  `dynamodbav:"language,omitempty" json:"language,omitempty"`
	Length          string  `dynamodbav:"length,omitempty" json:"length,omitempty"`
	Status          string  `dynamodbav:"status" json:"status"`
	ProgressPercent float64 `dynamodbav:"progressPercent,omitempty" json:"progress,omitempty"`
	StageMessage    string  `dynamodbav:"stageMessage,omitempty" json:"stage_message,omitempty"`
	ErrorMessage    string  `dynamodbav:"errorMessage,omitempty" json:"error,omitempty"`
	AudioKey        string  `dynamodbav:"audioKey,omitempty" json:"-"`
	AudioURL        string  `dynamodbav:"audioUrl,omitempty" json:"audio_url,omitempty"`
	TranscriptURL   string  `dynamodbav:"transcriptUrl,omitempty" json:"transcript_url,omitempty"`
	DurationSec     int     `dynamodbav:"durationSec,omitempty" json:"duration_sec,omitempty"`
	FileSizeMB      float64 `dynamodbav:"fileSizeMB,omitempty" json:"file_size_mb,omitempty"`
	Characters      int     `dynamodbav:"characters,omitempty" json:"characters,omitempty"`
	Degraded        bool    `dynamodbav:"degraded,omitempty" json:"degraded,omitempty"`
	CreatedAt       string  `dynamodbav:"createdAt" json:"created_at"`
}

// Completion is the final metadata of a finished episode.
type Completion struct {
	Title         string
	AudioKey      string
	AudioURL      string
	TranscriptURL string
	Duration      time.Duration
	FileSizeMB    float64
	Characters    int
	Degraded      bool
}

// DynamoAPI is the subset of the DynamoDB client Catalog uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Catalog stores episode records in a single table keyed by
// PK=EPISODE#<id>, SK=METADATA, with GSI1 listing episodes newest first.
type Catalog struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

func NewCatalog(client DynamoAPI, tableName string) *Catalog {
	return &Catalog{client: client, tableName: tableName, now: time.Now}
}

// NewID generates a ULID for a new episode.
func NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

func episodeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "EPISODE#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// Create inserts ep with status submitted. ep.ID must be set.
func (c *Catalog) Create(ctx context.Context, ep Episode) error {
	now := c.now().UTC().Format(time.RFC3339)
	ep.PK = "EPISODE#" + ep.ID
	ep.SK = "METADATA"
	ep.GSI1PK = "EPISODES"
	ep.GSI1SK = now + "#" + ep.ID
	ep.Status = string(StatusSubmitted)
	ep.CreatedAt = now

	av, err := attributevalue.MarshalMap(ep)
	if err != nil {
		return fmt.Errorf("marshal episode: %w", err)
	}
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &c.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("put episode: %w", err)
	}
	return nil
}

// UpdateProgress sets the status, progress percent and stage message.
func (c *Catalog) UpdateProgress(ctx context.Context, id string, status Status, percent float64, message string) error {
	_, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &c.tableName,
		Key:              episodeKey(id),
		UpdateExpression: aws.String("SET #status = :status, progressPercent = :pct, stageMessage = :msg"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":pct":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%.2f", percent)},
			":msg":    &types.AttributeValueMemberS{Value: message},
		},
	})
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Complete marks the episode complete with its final metadata.
func (c *Catalog) Complete(ctx context.Context, id string, done Completion) error {
	updateExpr := "SET #status = :status, progressPercent = :pct, stageMessage = :msg, title = :title, audioKey = :akey, audioUrl = :aurl, durationSec = :dur, fileSizeMB = :sz, characters = :chars, degraded = :deg"
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(StatusComplete)},
		":pct":    &types.AttributeValueMemberN{Value: "1.00"},
		":msg":    &types.AttributeValueMemberS{Value: "Complete"},
		":title":  &types.AttributeValueMemberS{Value: done.Title},
		":akey":   &types.AttributeValueMemberS{Value: done.AudioKey},
		":aurl":   &types.AttributeValueMemberS{Value: done.AudioURL},
		":dur":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", int(done.Duration.Seconds()))},
		":sz":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%.2f", done.FileSizeMB)},
		":chars":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", done.Characters)},
		":deg":    &types.AttributeValueMemberBOOL{Value: done.Degraded},
	}
	if done.TranscriptURL != "" {
		updateExpr += ", transcriptUrl = :turl"
		values[":turl"] = &types.AttributeValueMemberS{Value: done.TranscriptURL}
	}

	_, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &c.tableName,
		Key:              episodeKey(id),
		UpdateExpression: aws.String(updateExpr),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("complete episode: %w", err)
	}
	return nil
}

// Fail marks the episode failed with a message for the user.
func (c *Catalog) Fail(ctx context.Context, id, errMsg string) error {
	_, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &c.tableName,
		Key:              episodeKey(id),
		UpdateExpression: aws.String("SET #status = :status, errorMessage = :err, stageMessage = :msg"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(StatusFailed)},
			":err":    &types.AttributeValueMemberS{Value: errMsg},
			":msg":    &types.AttributeValueMemberS{Value: "Failed: " + errMsg},
		},
	})
	if err != nil {
		return fmt.Errorf("fail episode: %w", err)
	}
	return nil
}

// Get returns one episode, or nil when it does not exist.
func (c *Catalog) Get(ctx context.Context, id string) (*Episode, error) {
	result, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &c.tableName,
		Key:       episodeKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var ep Episode
	if err := attributevalue.UnmarshalMap(result.Item, &ep); err != nil {
		return nil, fmt.Errorf("unmarshal episode: %w", err)
	}
	return &ep, nil
}

// List returns episodes newest first. cursor is the GSI1SK of the last
// episode of the previous page; the returned cursor is empty on the last
// page.
func (c *Catalog) List(ctx context.Context, limit int, cursor string) ([]Episode, string, error) {
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              &c.tableName,
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "EPISODES"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	if cursor != "" {
		parts := strings.SplitN(cursor, "#", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		start := episodeKey(parts[1])
		start["GSI1PK"] = &types.AttributeValueMemberS{Value: "EPISODES"}
		start["GSI1SK"] = &types.AttributeValueMemberS{Value: cursor}
		input.ExclusiveStartKey = start
	}

	result, err := c.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list episodes: %w", err)
	}

	var eps []Episode
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &eps); err != nil {
		return nil, "", fmt.Errorf("unmarshal episode list: %w", err)
	}

	var next string
	if result.LastEvaluatedKey != nil {
		if sk, ok := result.LastEvaluatedKey["GSI1SK"].(*types.AttributeValueMemberS); ok {
			next = sk.Value
		}
	}
	return eps, next, nil
}

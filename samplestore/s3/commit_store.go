package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/annealgo/samplestore"
)

// ErrConcurrentCommit is returned when another writer committed the
// next version of the same run first.
var ErrConcurrentCommit = errors.New("concurrent commit detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore pairs an S3 archive store with a DynamoDB pointer table
// so concurrent writers can publish archives safely. Archives are
// immutable blobs in S3; the pointer to the latest committed archive
// of a run lives in DynamoDB, which provides the compare-and-swap
// semantics S3 lacks.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: version (number), monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name annealgo-commits \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	*Store

	ddb       DDBClient
	tableName string
	namespace string
}

// NewCommitStore creates a CommitStore. The namespace is folded into
// every partition key so multiple projects can share one table.
func NewCommitStore(store *Store, ddb DDBClient, tableName, namespace string) *CommitStore {
	return &CommitStore{
		Store:     store,
		ddb:       ddb,
		tableName: tableName,
		namespace: namespace,
	}
}

func (s *CommitStore) pk(run string) string {
	return path.Join(s.namespace, run)
}

// Commit atomically publishes archiveKey as the next version of run.
// It returns the committed version, or ErrConcurrentCommit if another
// writer claimed that version first.
func (s *CommitStore) Commit(ctx context.Context, run, archiveKey string) (uint64, error) {
	latest, _, err := s.latestVersion(ctx, run)
	if err != nil {
		return 0, err
	}
	next := latest + 1

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"run_id":      &types.AttributeValueMemberS{Value: s.pk(run)},
			"version":     &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"archive_key": &types.AttributeValueMemberS{Value: archiveKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return 0, ErrConcurrentCommit
		}
		return 0, fmt.Errorf("commit version %d of %q: %w", next, run, err)
	}
	return next, nil
}

// Latest returns the archive key and version of the newest commit of
// run. It returns samplestore.ErrNotFound if the run has no commits.
func (s *CommitStore) Latest(ctx context.Context, run string) (string, uint64, error) {
	version, archiveKey, err := s.latestVersion(ctx, run)
	if err != nil {
		return "", 0, err
	}
	if version == 0 {
		return "", 0, samplestore.ErrNotFound
	}
	return archiveKey, version, nil
}

// OpenLatest opens the newest committed archive of run.
func (s *CommitStore) OpenLatest(ctx context.Context, run string) (samplestore.Blob, error) {
	archiveKey, _, err := s.Latest(ctx, run)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, archiveKey)
}

// latestVersion queries the newest committed version of run.
// Version 0 means the run has never been committed.
func (s *CommitStore) latestVersion(ctx context.Context, run string) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("run_id = :run"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":run": &types.AttributeValueMemberS{Value: s.pk(run)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commits of %q: %w", run, err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("malformed commit item: version")
	}
	keyAttr, ok := item["archive_key"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("malformed commit item: archive_key")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed commit version %q: %w", versionAttr.Value, err)
	}
	return version, keyAttr.Value, nil
}

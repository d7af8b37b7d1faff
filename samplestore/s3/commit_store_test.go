package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/annealgo/samplestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory stand-in for the DynamoDB commit table.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := params.Item["run_id"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := runID + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runID := params.ExpressionAttributeValues[":run"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["run_id"].(*types.AttributeValueMemberS).Value == runID {
			items = append(items, item)
		}
	}

	// DynamoDB compares number sort keys numerically.
	sort.Slice(items, func(i, j int) bool {
		vi, _ := strconv.ParseUint(items[i]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		vj, _ := strconv.ParseUint(items[j]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return vi > vj
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestCommitStore(ddb *mockDDBClient, namespace string) *CommitStore {
	store := NewStore(&MockS3Client{}, "test-bucket", "runs/")
	return NewCommitStore(store, ddb, "annealgo-commits", namespace)
}

func TestCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	cs := newTestCommitStore(newMockDDBClient(), "proj")

	version, err := cs.Commit(ctx, "ring-32", "archives/ring-32-0001.smp")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	key, latest, err := cs.Latest(ctx, "ring-32")
	require.NoError(t, err)
	assert.Equal(t, "archives/ring-32-0001.smp", key)
	assert.Equal(t, uint64(1), latest)
}

func TestCommitStore_MonotonicVersions(t *testing.T) {
	ctx := context.Background()
	cs := newTestCommitStore(newMockDDBClient(), "proj")

	for i := 1; i <= 3; i++ {
		version, err := cs.Commit(ctx, "ring-32", fmt.Sprintf("archives/ring-32-%04d.smp", i))
		require.NoError(t, err)
		require.Equal(t, uint64(i), version)
	}

	key, latest, err := cs.Latest(ctx, "ring-32")
	require.NoError(t, err)
	assert.Equal(t, "archives/ring-32-0003.smp", key)
	assert.Equal(t, uint64(3), latest)
}

func TestCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	cs := newTestCommitStore(newMockDDBClient(), "proj")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := cs.Commit(ctx, "ring-32", fmt.Sprintf("archives/ring-32-w%d.smp", id))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConcurrentCommit):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Greater(t, successes, 0, "at least one writer should win")
	assert.Equal(t, 5, successes+conflicts)

	// Committed versions are dense, so the latest equals the number of
	// successful commits.
	_, latest, err := cs.Latest(ctx, "ring-32")
	require.NoError(t, err)
	assert.Equal(t, uint64(successes), latest)
}

func TestCommitStore_LatestMissing(t *testing.T) {
	ctx := context.Background()
	cs := newTestCommitStore(newMockDDBClient(), "proj")

	_, _, err := cs.Latest(ctx, "never-committed")
	require.ErrorIs(t, err, samplestore.ErrNotFound)
}

func TestCommitStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	csA := newTestCommitStore(ddb, "proj-a")
	csB := newTestCommitStore(ddb, "proj-b")

	_, err := csA.Commit(ctx, "ring-32", "archives/a.smp")
	require.NoError(t, err)
	_, err = csB.Commit(ctx, "ring-32", "archives/b.smp")
	require.NoError(t, err)

	keyA, _, err := csA.Latest(ctx, "ring-32")
	require.NoError(t, err)
	assert.Equal(t, "archives/a.smp", keyA)

	keyB, _, err := csB.Latest(ctx, "ring-32")
	require.NoError(t, err)
	assert.Equal(t, "archives/b.smp", keyB)
}

func TestCommitStore_OpenLatest(t *testing.T) {
	ctx := context.Background()
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/")
	cs := NewCommitStore(store, newMockDDBClient(), "annealgo-commits", "proj")

	_, err := cs.OpenLatest(ctx, "ring-32")
	require.ErrorIs(t, err, samplestore.ErrNotFound)

	_, err = cs.Commit(ctx, "ring-32", "archives/ring-32-0001.smp")
	require.NoError(t, err)

	mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
		return *input.Key == "runs/archives/ring-32-0001.smp"
	})).Return(&s3.HeadObjectOutput{
		ContentLength: aws.Int64(42),
	}, nil).Once()

	blob, err := cs.OpenLatest(ctx, "ring-32")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(42), blob.Size())
}

func TestCommitStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "runs/")
	cs := NewCommitStore(store, newMockDDBClient(), "annealgo-commits", "proj")

	mockClient.On("HeadObject", mock.Anything, mock.Anything).
		Return(nil, &s3types.NotFound{}).Once()

	_, err := cs.Open(ctx, "missing.smp")
	assert.ErrorIs(t, err, samplestore.ErrNotFound)
}

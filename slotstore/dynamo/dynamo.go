// Package dynamo provides a DynamoDB-backed slot store.
//
// One table serves any number of owning entities: each slot is one item
// keyed by (owner, slot). A Store is the fixed-slot view of a single owner,
// so it plugs in anywhere a slotstore.Store does — behind a blob, a state
// scope, or an archive restore.
//
// Table schema:
//   - Partition key: owner (string) - the owning entity, e.g. "app/7/global"
//   - Sort key: slot (number) - the slot key byte
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name avmkit-slots \
//	  --attribute-definitions AttributeName=owner,AttributeType=S AttributeName=slot,AttributeType=N \
//	  --key-schema AttributeName=owner,KeyType=HASH AttributeName=slot,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
//
// Reads are strongly consistent by default so a Put followed by a Get within
// one invocation observes the written page; WithEventuallyConsistentReads
// halves the read cost when staleness is acceptable.
package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/avmkit/slotstore"
)

// Item attribute names.
const (
	attrOwner = "owner"
	attrSlot  = "slot"
	attrPage  = "page"
)

// Client is the subset of the DynamoDB API the store uses.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type options struct {
	consistentRead bool
}

// Option configures a Store at construction time.
type Option func(*options)

// WithEventuallyConsistentReads trades read-after-write consistency for
// half the read cost. Do not combine with call sequences that read a slot
// they just wrote, such as partial-page blob writes.
func WithEventuallyConsistentReads() Option {
	return func(o *options) {
		o.consistentRead = false
	}
}

// Store is one owner's slot store backed by a DynamoDB table.
type Store struct {
	client     Client
	table      string
	owner      string
	slotSize   int
	consistent bool
}

// New creates a Store over an existing table. owner partitions the table;
// two stores with distinct owners never observe each other's slots.
// slotSize is enforced on every Put before any request is issued.
func New(client Client, table, owner string, slotSize int, optFns ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamo: nil client")
	}
	if table == "" || owner == "" {
		return nil, fmt.Errorf("dynamo: table and owner must not be empty")
	}
	if slotSize <= 0 {
		return nil, fmt.Errorf("dynamo: slot size must be positive, got %d", slotSize)
	}

	o := options{consistentRead: true}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return &Store{
		client:     client,
		table:      table,
		owner:      owner,
		slotSize:   slotSize,
		consistent: o.consistentRead,
	}, nil
}

// Owner returns the partition this store reads and writes.
func (s *Store) Owner() string { return s.owner }

func (s *Store) itemKey(key byte) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrOwner: &types.AttributeValueMemberS{Value: s.owner},
		attrSlot:  &types.AttributeValueMemberN{Value: strconv.Itoa(int(key))},
	}
}

// Get returns the slot value, or slotstore.ErrNotFound if the item does not
// exist.
func (s *Store) Get(ctx context.Context, key byte) ([]byte, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(s.consistent),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get slot 0x%02x: %w", key, err)
	}
	if len(resp.Item) == 0 {
		return nil, slotstore.ErrNotFound
	}

	page, ok := resp.Item[attrPage].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("dynamo: slot 0x%02x: item has no binary %q attribute", key, attrPage)
	}

	value := make([]byte, len(page.Value))
	copy(value, page.Value)
	return value, nil
}

// Put writes a slot. The value length is validated against the configured
// slot size before any request is issued; the table itself enforces
// nothing.
func (s *Store) Put(ctx context.Context, key byte, value []byte) error {
	if len(value) != s.slotSize {
		return &slotstore.SlotSizeError{Key: key, Got: len(value), Want: s.slotSize}
	}

	item := s.itemKey(key)
	item[attrPage] = &types.AttributeValueMemberB{Value: value}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamo: put slot 0x%02x: %w", key, err)
	}
	return nil
}

// Delete removes a slot. Deleting a missing slot is a no-op.
func (s *Store) Delete(ctx context.Context, key byte) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.itemKey(key),
	}); err != nil {
		return fmt.Errorf("dynamo: delete slot 0x%02x: %w", key, err)
	}
	return nil
}

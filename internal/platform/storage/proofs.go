package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

const (
	defaultProofURLExpiry = 15 * time.Minute
	maxViewURLExpiry      = 15 * time.Minute

	proofObjectPrefix = "payment-proofs"
)

var (
	errNoSigner           = errors.New("storage: signer is required")
	errInvalidBucket      = errors.New("storage: bucket name is required")
	errInvalidOrderID     = errors.New("storage: order id is required")
	errInvalidObject      = errors.New("storage: object name is required")
	errContentTypeMissing = errors.New("storage: content type is required for uploads")
	errContentTypeDenied  = errors.New("storage: content type not allowed")
	errObjectOutsideStore = errors.New("storage: object is outside the proof prefix")
)

// Transfer proofs are photos or scans of bank receipts.
var allowedProofContentTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// ProofStore issues signed URLs for uploading and reviewing payment proofs.
// Objects live under payment-proofs/<orderID>/ in a private bucket; the API
// never proxies the bytes itself.
type ProofStore struct {
	signer Signer
	bucket string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// ProofStoreOption customises ProofStore behaviour.
type ProofStoreOption func(*ProofStore)

// WithProofURLTTL overrides the signed URL lifetime.
func WithProofURLTTL(ttl time.Duration) ProofStoreOption {
	return func(s *ProofStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithProofClock injects a custom clock (useful for tests).
func WithProofClock(clock func() time.Time) ProofStoreOption {
	return func(s *ProofStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithProofIDGenerator injects a custom object id generator.
func WithProofIDGenerator(gen func() string) ProofStoreOption {
	return func(s *ProofStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewProofStore constructs a proof store for the given bucket.
func NewProofStore(signer Signer, bucket string, opts ...ProofStoreOption) (*ProofStore, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	store := &ProofStore{
		signer: signer,
		bucket: bucket,
		ttl:    defaultProofURLExpiry,
		now:    time.Now,
		newID: func() string {
			return ulid.Make().String()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// ProofUploadTicket carries everything a client needs to PUT a proof object.
type ProofUploadTicket struct {
	ObjectRef   string
	URL         string
	ContentType string
	ExpiresAt   time.Time
}

// UploadURL issues a signed PUT URL for a new proof object belonging to an order.
func (s *ProofStore) UploadURL(ctx context.Context, orderID, contentType string) (ProofUploadTicket, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ProofUploadTicket{}, errInvalidOrderID
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return ProofUploadTicket{}, errContentTypeMissing
	}
	ext, ok := allowedProofContentTypes[contentType]
	if !ok {
		return ProofUploadTicket{}, fmt.Errorf("%w: %s", errContentTypeDenied, contentType)
	}

	object := fmt.Sprintf("%s/%s/%s.%s", proofObjectPrefix, orderID, strings.ToLower(s.newID()), ext)
	expires := s.now().Add(s.ttl)

	url, err := s.signedURL(ctx, object, http.MethodPut, contentType, expires)
	if err != nil {
		return ProofUploadTicket{}, err
	}
	return ProofUploadTicket{
		ObjectRef:   object,
		URL:         url,
		ContentType: contentType,
		ExpiresAt:   expires,
	}, nil
}

// ViewURL issues a short-lived signed GET URL for an existing proof object.
func (s *ProofStore) ViewURL(ctx context.Context, objectRef string) (string, error) {
	object := strings.TrimSpace(strings.TrimPrefix(objectRef, "/"))
	if object == "" {
		return "", errInvalidObject
	}
	if !strings.HasPrefix(object, proofObjectPrefix+"/") {
		return "", errObjectOutsideStore
	}

	ttl := s.ttl
	if ttl > maxViewURLExpiry {
		ttl = maxViewURLExpiry
	}
	return s.signedURL(ctx, object, http.MethodGet, "", s.now().Add(ttl))
}

func (s *ProofStore) signedURL(ctx context.Context, object, method, contentType string, expires time.Time) (string, error) {
	opts := &storage.SignedURLOptions{
		GoogleAccessID: s.signer.Email(),
		Scheme:         storage.SigningSchemeV4,
		Method:         method,
		Expires:        expires,
		ContentType:    contentType,
		SignBytes: func(payload []byte) ([]byte, error) {
			return s.signer.SignBytes(ctx, payload)
		},
	}
	url, err := storage.SignedURL(s.bucket, object, opts)
	if err != nil {
		return "", fmt.Errorf("storage: sign url for %s: %w", object, err)
	}
	return url, nil
}

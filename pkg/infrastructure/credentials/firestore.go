package credentials

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/healthsync/server/pkg/infrastructure/oauth"
)

// DefaultCollection holds one document per provider.
const DefaultCollection = "credentials"

// FirestoreStore keeps tokens in Firestore so scheduled runs can share them.
type FirestoreStore struct {
	Client     *firestore.Client
	Collection string
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{Client: client, Collection: DefaultCollection}
}

func (s *FirestoreStore) doc(provider string) *firestore.DocumentRef {
	return s.Client.Collection(s.Collection).Doc(provider)
}

func (s *FirestoreStore) Load(ctx context.Context, provider string) (*oauth.Token, error) {
	snap, err := s.doc(provider).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &oauth.Token{}, nil
		}
		return nil, fmt.Errorf("get %s credentials: %w", provider, err)
	}
	return tokenFromFirestore(snap.Data()), nil
}

func (s *FirestoreStore) Save(ctx context.Context, provider string, token *oauth.Token) error {
	_, err := s.doc(provider).Set(ctx, tokenToFirestore(token), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set %s credentials: %w", provider, err)
	}
	return nil
}

func tokenToFirestore(t *oauth.Token) map[string]interface{} {
	m := map[string]interface{}{
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"updated_at":    time.Now().UTC(),
	}
	if !t.Expiry.IsZero() {
		m["expires_at"] = t.Expiry.UTC()
	}
	return m
}

func tokenFromFirestore(m map[string]interface{}) *oauth.Token {
	t := &oauth.Token{}
	if v, ok := m["access_token"].(string); ok {
		t.AccessToken = v
	}
	if v, ok := m["refresh_token"].(string); ok {
		t.RefreshToken = v
	}
	if v, ok := m["expires_at"].(time.Time); ok {
		t.Expiry = v
	}
	return t
}

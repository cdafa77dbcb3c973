package user

import "context"

type mockBackend struct {
	getPlayerFunc func(ctx context.Context, name string) (*Credential, error)
	addPlayerFunc func(ctx context.Context, c Credential) (bool, error)
}

func (m mockBackend) GetPlayer(ctx context.Context, name string) (*Credential, error) {
	return m.getPlayerFunc(ctx, name)
}

func (m mockBackend) AddPlayer(ctx context.Context, c Credential) (bool, error) {
	return m.addPlayerFunc(ctx, c)
}

type mockHasher struct {
	hashFunc   func(password string) ([]byte, error)
	verifyFunc func(hash []byte, password string) (bool, error)
}

func (m mockHasher) Hash(password string) ([]byte, error) {
	return m.hashFunc(password)
}

func (m mockHasher) Verify(hash []byte, password string) (bool, error) {
	return m.verifyFunc(hash, password)
}

package postgres

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/jacobpatterson1549/rts-masterserver/db/sql"
	"github.com/jacobpatterson1549/rts-masterserver/db/user"
)

func TestUserBackendGetPlayer(t *testing.T) {
	tests := []struct {
		queryErr error
		notFound bool
		wantOk   bool
	}{
		{
			wantOk: true,
		},
		{
			notFound: true,
			wantOk:   true,
		},
		{
			queryErr: fmt.Errorf("could not read player from mock"),
		},
	}
	for i, test := range tests {
		want := &user.Credential{
			Username:     "billy",
			PasswordHash: []byte("hash"),
		}
		d := mockDatabase{
			QueryFunc: func(ctx context.Context, q sql.Query, dest ...interface{}) error {
				wantCmd := "SELECT username, password_hash FROM player_get($1)"
				wantArgs := []interface{}{"billy"}
				switch {
				case !reflect.DeepEqual(wantCmd, q.Cmd()):
					t.Errorf("Test %v: query commands not equal: \n wanted: %q \n got:    %q", i, wantCmd, q.Cmd())
				case !reflect.DeepEqual(wantArgs, q.Args()):
					t.Errorf("Test %v: query args not equal: \n wanted: %q \n got:    %q", i, wantArgs, q.Args())
				}
				if test.notFound {
					return sql.ErrNoRows
				}
				*dest[0].(*string) = want.Username
				*dest[1].(*[]byte) = want.PasswordHash
				return test.queryErr
			},
		}
		ub := UserBackend{Database: d}
		ctx := context.Background()
		got, err := ub.GetPlayer(ctx, "billy")
		switch {
		case !test.wantOk:
			if err == nil {
				t.Errorf("Test %v: wanted error", i)
			}
		case err != nil:
			t.Errorf("Test %v: unwanted error: %v", i, err)
		case test.notFound:
			if got != nil {
				t.Errorf("Test %v: wanted nil credential, got %v", i, got)
			}
		case !reflect.DeepEqual(want, got):
			t.Errorf("Test %v: credentials not equal: \n wanted: %v \n got:    %v", i, want, got)
		}
	}
}

func TestUserBackendAddPlayer(t *testing.T) {
	tests := []struct {
		execErr error
		wantOk  bool
	}{
		{
			wantOk: true,
		},
		{
			execErr: fmt.Errorf("could not add player to mock"),
		},
	}
	for i, test := range tests {
		c := user.Credential{
			Username:     "billy",
			PasswordHash: []byte("hash"),
		}
		d := mockDatabase{
			ExecFunc: func(ctx context.Context, queries ...sql.Query) error {
				wantCmd := "SELECT player_add($1, $2)"
				wantArgs := []interface{}{"billy", []byte("hash")}
				if len(queries) != 1 {
					t.Fatalf("Test %v: wanted 1 query, got %v", i, len(queries))
				}
				if !reflect.DeepEqual(wantCmd, queries[0].Cmd()) {
					t.Errorf("Test %v: query commands not equal: \n wanted: %q \n got:    %q", i, wantCmd, queries[0].Cmd())
				}
				if !reflect.DeepEqual(wantArgs, queries[0].Args()) {
					t.Errorf("Test %v: query args not equal: \n wanted: %q \n got:    %q", i, wantArgs, queries[0].Args())
				}
				return test.execErr
			},
		}
		ub := UserBackend{Database: d}
		ctx := context.Background()
		ok, err := ub.AddPlayer(ctx, c)
		switch {
		case !test.wantOk:
			if err == nil {
				t.Errorf("Test %v: wanted error", i)
			}
		case err != nil:
			t.Errorf("Test %v: unwanted error: %v", i, err)
		case !ok:
			t.Errorf("Test %v: wanted player to be added", i)
		}
	}
}

package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/blastxml/internal/db"
)

const reportKey = "blastxml:report:{r1}"

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreFromClient(c), c
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

func scanPage(cursor int64, keys ...string) rueidis.RedisResult {
	elems := make([]rueidis.RedisMessage, len(keys))
	for i, k := range keys {
		elems[i] = mock.RedisString(k)
	}
	return mock.Result(mock.RedisArray(mock.RedisInt64(cursor), mock.RedisArray(elems...)))
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		res     rueidis.RedisResult
		wantErr bool
	}{
		{"pong", mock.Result(mock.RedisString("PONG")), false},
		{"timeout", mock.ErrorResult(context.DeadlineExceeded), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(tt.res)

			err := s.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ping() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
			Return(mock.ErrorResult(errors.New("LOADING"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
			Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	loading := errors.New("LOADING")
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(loading)).MinTimes(1)

	err := s.WaitForReady(context.Background(), 120*time.Millisecond)
	if !errors.Is(err, loading) {
		t.Fatalf("expected last ping error, got %v", err)
	}
}

func TestHSet_SortedFields(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HSET", reportKey, "a", "1", "m", "2", "z", "3")).
		Return(mock.Result(mock.RedisInt64(3)))

	err := s.HSet(context.Background(), reportKey, map[string]string{"z": "3", "a": "1", "m": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_EmptyIsNoop(t *testing.T) {
	s, _ := newMockStore(t)
	if err := s.HSet(context.Background(), reportKey, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(context.DeadlineExceeded))

	err := s.HSet(context.Background(), reportKey, map[string]string{"f": "v"})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestHGetAll(t *testing.T) {
	tests := []struct {
		name    string
		res     rueidis.RedisResult
		want    map[string]string
		wantErr bool
	}{
		{
			name: "fields",
			res: mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"program": mock.RedisString("blastp"),
				"hits":    mock.RedisString("2"),
			})),
			want: map[string]string{"program": "blastp", "hits": "2"},
		},
		{
			name: "missing key",
			res:  mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
			want: map[string]string{},
		},
		{
			name:    "error",
			res:     mock.ErrorResult(context.DeadlineExceeded),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("HGETALL", reportKey)).Return(tt.res)

			got, err := s.HGetAll(context.Background(), reportKey)
			if tt.wantErr {
				if !isDBError(err) {
					t.Fatalf("expected db.Error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestHGet(t *testing.T) {
	tests := []struct {
		name    string
		res     rueidis.RedisResult
		want    string
		wantErr error
	}{
		{"field", mock.Result(mock.RedisBlobString("3")), "3", nil},
		{"missing", mock.Result(mock.RedisNil()), "", db.ErrKeyNotFound},
		{"error", mock.ErrorResult(context.DeadlineExceeded), "", context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("HGET", reportKey+":queries", "Query_3")).
				Return(tt.res)

			got, err := s.HGet(context.Background(), reportKey+":queries", "Query_3")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HGet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHGetAllMulti(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("HGETALL", "blastxml:iter:{r1}:1"),
			mock.Match("HGETALL", "blastxml:iter:{r1}:2"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{"query_id": mock.RedisString("Query_1")})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{"query_id": mock.RedisString("Query_2")})),
		})

	got, err := s.HGetAllMulti(context.Background(), []string{"blastxml:iter:{r1}:1", "blastxml:iter:{r1}:2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0]["query_id"] != "Query_1" || got[1]["query_id"] != "Query_2" {
		t.Errorf("unexpected results: %v", got)
	}
}

func TestHGetAllMulti_ErrorNamesKey(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
			mock.ErrorResult(errors.New("MOVED")),
		})

	_, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if want := "key k2"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name %q", err, want)
	}
}

func TestEmptyInputsSkipClient(t *testing.T) {
	s := NewStoreFromClient(nil)
	ctx := context.Background()

	if res, err := s.HGetAllMulti(ctx, nil); err != nil || res != nil {
		t.Errorf("HGetAllMulti(nil) = %v, %v", res, err)
	}
	if vals, err := s.MGet(ctx, nil); err != nil || vals != nil {
		t.Errorf("MGet(nil) = %v, %v", vals, err)
	}
	if err := s.Del(ctx); err != nil {
		t.Errorf("Del() = %v", err)
	}
	if err := s.SetMulti(ctx, nil, time.Hour); err != nil {
		t.Errorf("SetMulti(nil) = %v", err)
	}
}

func TestDel(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", reportKey, "blastxml:iter:{r1}:1")).
		Return(mock.Result(mock.RedisInt64(2)))

	if err := s.Del(context.Background(), reportKey, "blastxml:iter:{r1}:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExists(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want bool
	}{
		{"present", 1, true},
		{"absent", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("EXISTS", reportKey)).
				Return(mock.Result(mock.RedisInt64(tt.n)))

			got, err := s.Exists(context.Background(), reportKey)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScan_Pages(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Nodes().Return(map[string]rueidis.Client{})
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "blastxml:report:*", "COUNT", "500")).
			Return(scanPage(42, "a")),
		c.EXPECT().Do(gomock.Any(), mock.Match("SCAN", "42", "MATCH", "blastxml:report:*", "COUNT", "500")).
			Return(scanPage(0, "b", "c")),
	)

	keys, err := s.Scan(context.Background(), "blastxml:report:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestScan_ClusterNodesDeduplicated(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	n1 := mock.NewClient(ctrl)
	n2 := mock.NewClient(ctrl)

	c.EXPECT().Nodes().Return(map[string]rueidis.Client{"10.0.0.2:6379": n2, "10.0.0.1:6379": n1})
	n1.EXPECT().Do(gomock.Any(), gomock.Any()).Return(scanPage(0, "x", "y"))
	n2.EXPECT().Do(gomock.Any(), gomock.Any()).Return(scanPage(0, "y", "z"))

	keys, err := NewStoreFromClient(c).Scan(context.Background(), "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys, []string{"x", "y", "z"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestScan_ErrorNamesNode(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	n1 := mock.NewClient(ctrl)

	c.EXPECT().Nodes().Return(map[string]rueidis.Client{"10.0.0.1:6379": n1})
	n1.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(context.Canceled))

	_, err := NewStoreFromClient(c).Scan(context.Background(), "*")
	if !isDBError(err) || !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "10.0.0.1:6379") {
		t.Errorf("error %q does not name node", err)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		res     rueidis.RedisResult
		want    string
		wantErr error
	}{
		{"value", mock.Result(mock.RedisBlobString(`{"num":1}`)), `{"num":1}`, nil},
		{"nil reply", mock.Result(mock.RedisNil()), "", db.ErrKeyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", reportKey)).Return(tt.res)

			got, err := s.Get(context.Background(), reportKey)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("MGET", "k1", "k2", "k3")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisBlobString("one"),
			mock.RedisNil(),
			mock.RedisBlobString("three"),
		)))

	vals, err := s.MGet(context.Background(), []string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 3 || string(vals[0]) != "one" || vals[1] != nil || string(vals[2]) != "three" {
		t.Errorf("unexpected values: %q", vals)
	}
}

func TestMGet_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(context.DeadlineExceeded))

	if _, err := s.MGet(context.Background(), []string{"k1"}); !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestSetCommands(t *testing.T) {
	tests := []struct {
		name string
		want []string
		call func(*Store) error
	}{
		{
			name: "set",
			want: []string{"SET", "k", "v"},
			call: func(s *Store) error { return s.Set(context.Background(), "k", []byte("v")) },
		},
		{
			name: "ttl",
			want: []string{"SET", "k", "v", "EX", "60"},
			call: func(s *Store) error { return s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute) },
		},
		{
			name: "zero ttl",
			want: []string{"SET", "k", "v"},
			call: func(s *Store) error { return s.SetWithTTL(context.Background(), "k", []byte("v"), 0) },
		},
		{
			name: "expire",
			want: []string{"EXPIRE", "k", "300"},
			call: func(s *Store) error { return s.Expire(context.Background(), "k", 5*time.Minute, false) },
		},
		{
			name: "expire nx",
			want: []string{"EXPIRE", "k", "300", "NX"},
			call: func(s *Store) error { return s.Expire(context.Background(), "k", 5*time.Minute, true) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match(tt.want...)).Return(mock.Result(mock.RedisString("OK")))

			if err := tt.call(s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSetMulti(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("SET", "k1", "v1", "EX", "3600"),
			mock.Match("SET", "k2", "v2", "EX", "3600"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	err := s.SetMulti(context.Background(), []db.KVSetItem{
		{Key: "k1", Value: []byte("v1")},
		{Key: "k2", Value: []byte("v2")},
	}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetMulti_PartialFailure(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.ErrorResult(errors.New("OOM command not allowed")),
		})

	err := s.SetMulti(context.Background(), []db.KVSetItem{
		{Key: "k1", Value: []byte("v1")},
		{Key: "k2", Value: []byte("v2")},
	}, 0)
	if !isDBError(err) || !strings.Contains(err.Error(), "key k2") {
		t.Fatalf("unexpected error: %v", err)
	}
}

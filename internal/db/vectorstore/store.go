// Package vectorstore 提供内存向量索引与磁盘产物的读写。
// 暴力内积检索（向量归一化后等价余弦相似度），适配中小规模语料。
package vectorstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrArtifactMissing 索引产物文件不存在
	ErrArtifactMissing = errors.New("index artifact missing")
	// ErrArtifactCorrupt 索引产物文件损坏或格式不符
	ErrArtifactCorrupt = errors.New("index artifact corrupt")
)

// Entry 索引内一条片段记录
type Entry struct {
	ID     string
	Text   string
	Source string
	Row    int
}

// Hit 单条检索命中
type Hit struct {
	Entry Entry
	Score float64
}

// Store 内存向量索引。读并发安全；构建完成后只读。
type Store struct {
	dims    int
	entries []Entry
	vectors [][]float32
	mu      sync.RWMutex
}

// New 创建指定维度的空索引
func New(dims int) (*Store, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dims must be positive, got %d", dims)
	}
	return &Store{dims: dims}, nil
}

// Add 追加片段及其向量。向量须与索引维度一致。
func (s *Store) Add(entries []Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("entries and vectors length mismatch: %d vs %d", len(entries), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range entries {
		if len(vectors[i]) != s.dims {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), s.dims)
		}
		vec := make([]float32, s.dims)
		copy(vec, vectors[i])
		s.entries = append(s.entries, e)
		s.vectors = append(s.vectors, vec)
	}
	return nil
}

// Search 返回与查询向量内积最高的前 k 条命中，降序。
// 索引为空或 k<=0 时返回空切片。
func (s *Store) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != s.dims {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dims)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, len(s.entries))
	for i, vec := range s.vectors {
		var dot float64
		for j := 0; j < s.dims; j++ {
			dot += float64(query[j] * vec[j])
		}
		hits[i] = Hit{Entry: s.entries[i], Score: dot}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size 返回索引内片段数量
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dims 返回向量维度
func (s *Store) Dims() int {
	return s.dims
}

// ── 产物序列化 ────────────────────────────────────────────────
//
// 格式：dims(4) n(4)，然后逐条：id、source、row(4)、text、vector(dims*4)。
// 字符串为 len(4) + bytes，小端。

// Save 将索引原子写入 path：先写临时文件再 rename，
// 保证并发读取方要么看到旧产物要么看到新产物。
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("index path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := s.encode(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *Store) encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(s.dims)); err != nil {
		return fmt.Errorf("write dims: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, e := range s.entries {
		if err := writeString(w, e.ID); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeString(w, e.Source); err != nil {
			return fmt.Errorf("write source: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(e.Row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		if err := writeString(w, e.Text); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(s.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load 从 path 读取索引。文件缺失返回 ErrArtifactMissing，
// 解析失败返回 ErrArtifactCorrupt（均可 errors.Is 判别）。
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("open index artifact: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	store, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, path, err)
	}
	return store, nil
}

func decode(r io.Reader) (*Store, error) {
	var dims, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dims: %w", err)
	}
	if dims == 0 || dims > 1<<16 {
		return nil, fmt.Errorf("implausible dims %d", dims)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	store := &Store{dims: int(dims)}
	store.entries = make([]Entry, 0, n)
	store.vectors = make([][]float32, 0, n)
	buf := make([]byte, int(dims)*4)

	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		source, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		var row uint32
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		text, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read text: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		store.entries = append(store.entries, Entry{ID: id, Source: source, Row: int(row), Text: text})
		store.vectors = append(store.vectors, bytesToFloat32Slice(buf))
	}
	return store, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 1<<24 {
		return "", fmt.Errorf("implausible string length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Normalize 对向量做 L2 归一化（原地），零向量保持不变。
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

package rag

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bankrm/internal/db/vectorstore"
	applog "bankrm/internal/platform/log"
)

// corpusCSVFiles 表格语料的固定清单。缺失的文件跳过并告警。
var corpusCSVFiles = []string{
	"account.csv",
	"client.csv",
	"loan.csv",
	"order.csv",
	"card.csv",
	"disposition.csv",
	"district.csv",
	"LuxuryLoanPortfolio.csv",
}

// Indexer 离线 ETL：语料目录 -> 片段 -> 分块 -> 向量 -> 索引。
// 对同一份语料是确定性的（向量由外部 Embedder 决定）。
type Indexer struct {
	config   *Config
	embedder Embedder
	parsers  *ParserRegistry
	chunker  *Chunker
}

// NewIndexer 创建 ETL Pipeline
func NewIndexer(cfg *Config, embedder Embedder) *Indexer {
	return &Indexer{
		config:   cfg,
		embedder: embedder,
		parsers:  NewParserRegistry(),
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
	}
}

// Parsers 返回解析器注册表
func (idx *Indexer) Parsers() *ParserRegistry {
	return idx.parsers
}

// Build 全量构建索引：读语料、分块、向量化，返回未持久化的新索引。
func (idx *Indexer) Build(ctx context.Context) (*vectorstore.Store, error) {
	start := time.Now()

	entries, err := idx.collectEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no corpus documents found in %s", idx.config.CorpusDir)
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(entries) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(entries))
	}
	for _, v := range vectors {
		vectorstore.Normalize(v)
	}

	store, err := vectorstore.New(idx.embedder.Dims())
	if err != nil {
		return nil, err
	}
	if err := store.Add(entries, vectors); err != nil {
		return nil, fmt.Errorf("populate index: %w", err)
	}

	applog.Info("[RAG/Indexer] Index built",
		"chunks", store.Size(),
		"dims", store.Dims(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return store, nil
}

// collectEntries 读取语料目录，产出全部片段
func (idx *Indexer) collectEntries() ([]vectorstore.Entry, error) {
	var entries []vectorstore.Entry

	// 1. 固定清单的 CSV：逐行转文本
	for _, name := range corpusCSVFiles {
		path := filepath.Join(idx.config.CorpusDir, name)
		rows, err := idx.readCSVRows(path, name)
		if err != nil {
			if os.IsNotExist(err) {
				applog.Warn("[RAG/Indexer] CSV not found, skipping", "file", name)
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		entries = append(entries, rows...)
	}

	// 2. 知识文档（md/txt/pdf/docx）：解析 + 分块
	docs, err := idx.readKnowledgeDocs()
	if err != nil {
		return nil, err
	}
	entries = append(entries, docs...)

	return entries, nil
}

// readCSVRows 将一个 CSV 的每一行转为一条片段：
// "file:<name> | col: val ; col: val ..."
func (idx *Indexer) readCSVRows(path, name string) ([]vectorstore.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // 宽松：行宽不齐时按实际列数处理

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil // 只有表头或空文件
	}

	header := records[0]
	prefix := "file:" + name
	entries := make([]vectorstore.Entry, 0, len(records)-1)

	for rowNum, rec := range records[1:] {
		pairs := make([]string, 0, len(rec))
		for i, v := range rec {
			col := fmt.Sprintf("col%d", i)
			if i < len(header) {
				col = header[i]
			}
			pairs = append(pairs, fmt.Sprintf("%s: %s", col, v))
		}
		text := prefix + " | " + strings.Join(pairs, " ; ")

		// 行文本超长时仍走分块器
		for _, chunk := range idx.chunker.Chunk(text) {
			entries = append(entries, vectorstore.Entry{
				ID:     uuid.New().String(),
				Text:   chunk,
				Source: name,
				Row:    rowNum + 1,
			})
		}
	}

	applog.Info("[RAG/Indexer] CSV processed", "file", name, "rows", len(records)-1)
	return entries, nil
}

// readKnowledgeDocs 解析语料目录下所有有对应解析器的文档
func (idx *Indexer) readKnowledgeDocs() ([]vectorstore.Entry, error) {
	dirEntries, err := os.ReadDir(idx.config.CorpusDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("corpus dir %s does not exist", idx.config.CorpusDir)
		}
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var entries []vectorstore.Entry
	for _, de := range dirEntries {
		if de.IsDir() || !idx.parsers.Supports(de.Name()) {
			continue
		}

		path := filepath.Join(idx.config.CorpusDir, de.Name())
		parser, err := idx.parsers.Get(de.Name())
		if err != nil {
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			applog.Warn("[RAG/Indexer] Failed to open document, skipping", "file", de.Name(), "error", err)
			continue
		}
		result, err := parser.Parse(f, de.Name())
		f.Close()
		if err != nil {
			applog.Warn("[RAG/Indexer] Failed to parse document, skipping", "file", de.Name(), "error", err)
			continue
		}
		if result.Content == "" {
			continue
		}

		chunks := idx.chunker.Chunk(result.Content)
		docID := uuid.New().String()
		for i, chunk := range chunks {
			entries = append(entries, vectorstore.Entry{
				ID:     fmt.Sprintf("%s_chunk_%d", docID, i),
				Text:   chunk,
				Source: de.Name(),
			})
		}
		applog.Info("[RAG/Indexer] Document processed", "file", de.Name(), "chunks", len(chunks))
	}
	return entries, nil
}

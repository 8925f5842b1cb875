// Package chunking provides fixed-size text chunking with overlap for
// repository indexing.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Chunking parameters. The window slides forward by Size-Overlap characters
// so adjacent chunks share Overlap characters of context.
const (
	Size    = 1500
	Overlap = 200
)

// binaryExtensions are file types that never benefit from chunking,
// regardless of size.
var binaryExtensions = map[string]struct{}{
	".png":   {},
	".jpg":   {},
	".jpeg":  {},
	".gif":   {},
	".svg":   {},
	".ico":   {},
	".pdf":   {},
	".zip":   {},
	".tar":   {},
	".gz":    {},
	".exe":   {},
	".bin":   {},
	".woff":  {},
	".woff2": {},
	".ttf":   {},
	".eot":   {},
}

// Chunk is a single window of file content with its half-open character
// range in the original file.
type Chunk struct {
	id           string
	repositoryID int64
	filePath     string
	index        int
	totalChunks  int
	startChar    int
	endChar      int
	content      string
}

// ID returns the deterministic chunk identifier,
// sha256("<repoID>:<path>:chunk-<index>"). Re-chunking the same file
// always yields the same IDs, so re-indexing overwrites rather than
// duplicates vectors.
func (c Chunk) ID() string { return c.id }

// RepositoryID returns the owning repository ID.
func (c Chunk) RepositoryID() int64 { return c.repositoryID }

// FilePath returns the source file path.
func (c Chunk) FilePath() string { return c.filePath }

// Index returns the zero-based chunk index within the file.
func (c Chunk) Index() int { return c.index }

// TotalChunks returns how many chunks the file produced.
func (c Chunk) TotalChunks() int { return c.totalChunks }

// StartChar returns the inclusive start of the chunk's character range.
func (c Chunk) StartChar() int { return c.startChar }

// EndChar returns the exclusive end of the chunk's character range.
func (c Chunk) EndChar() int { return c.endChar }

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// ChunkFile splits content into overlapping fixed-size chunks. Content no
// longer than the window produces exactly one chunk covering the whole
// file. The union of all [StartChar,EndChar) ranges covers the content
// with no gaps.
func ChunkFile(repositoryID int64, filePath, content string) []Chunk {
	if len(content) <= Size {
		return []Chunk{{
			id:           chunkID(repositoryID, filePath, 0),
			repositoryID: repositoryID,
			filePath:     filePath,
			index:        0,
			totalChunks:  1,
			startChar:    0,
			endChar:      len(content),
			content:      content,
		}}
	}

	var chunks []Chunk
	step := Size - Overlap
	for start, index := 0, 0; ; start, index = start+step, index+1 {
		end := min(start+Size, len(content))
		chunks = append(chunks, Chunk{
			id:           chunkID(repositoryID, filePath, index),
			repositoryID: repositoryID,
			filePath:     filePath,
			index:        index,
			startChar:    start,
			endChar:      end,
			content:      content[start:end],
		})
		// Stop once the window reaches the end; the overlap would
		// otherwise emit a final fragment already covered by this chunk.
		if end == len(content) {
			break
		}
	}

	for i := range chunks {
		chunks[i].totalChunks = len(chunks)
	}
	return chunks
}

// ShouldChunk reports whether a file is worth chunking at all: files
// smaller than one window and binary file types are skipped. The size
// is the host-reported blob size, so callers can filter before
// fetching content.
func ShouldChunk(filePath string, size int) bool {
	if size < Size {
		return false
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	_, binary := binaryExtensions[ext]
	return !binary
}

func chunkID(repositoryID int64, filePath string, index int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s:chunk-%d", repositoryID, filePath, index))
	return hex.EncodeToString(sum[:])
}

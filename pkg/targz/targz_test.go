package targz_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gotmpls-hybrid/pkg/targz"
)

func createTestTarGz(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := files[name]
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	return buf.Bytes()
}

func TestLoadIntoFs(t *testing.T) {
	testFiles := map[string]string{
		"grammars/html.xml":      "<lexer/>",
		"grammars/sub/yaml.xml":  "<lexer/>",
		"grammars/README.md":     "readme",
		"grammars/big/large.xml": strings.Repeat("x", 100),
	}

	data := createTestTarGz(t, testFiles)

	fs, err := targz.LoadIntoFs(data, targz.LoadOptions{
		StripComponents: 1,
		Filter: func(header *tar.Header) bool {
			return strings.HasSuffix(header.Name, ".xml")
		},
		MaxFileSize: 50,
	})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "html.xml")
	require.NoError(t, err)
	assert.Equal(t, "<lexer/>", string(content))

	content, err = afero.ReadFile(fs, "sub/yaml.xml")
	require.NoError(t, err)
	assert.Equal(t, "<lexer/>", string(content))

	exists, err := afero.Exists(fs, "README.md")
	require.NoError(t, err)
	assert.False(t, exists, "filtered files should be skipped")

	exists, err = afero.Exists(fs, "big/large.xml")
	require.NoError(t, err)
	assert.False(t, exists, "oversize files should be skipped")
}

func TestLoadIntoFsCollision(t *testing.T) {
	data := createTestTarGz(t, map[string]string{
		"a/x.xml": "1",
		"b/x.xml": "2",
	})

	_, err := targz.LoadIntoFs(data, targz.LoadOptions{StripComponents: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file collision")
}

func TestLoadIntoFsInvalidData(t *testing.T) {
	_, err := targz.LoadIntoFs([]byte("not a tarball"), targz.LoadOptions{})
	require.Error(t, err)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "root", input: "/", expected: nil},
		{name: "simple", input: "a/b/c.xml", expected: []string{"a", "b", "c.xml"}},
		{name: "leading dot and slashes", input: "./a//b/", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, targz.SplitPath(tt.input))
		})
	}
}

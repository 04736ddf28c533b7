package shell

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// File primitives built on Execute. Paths are always single-quoted so
// spaces and shell metacharacters in filenames cannot break the command.

// FileExists reports whether a regular file exists at path. Any
// execution failure, including an unreachable channel, reads as false.
func (c *Channel) FileExists(path string) bool {
	_, err := c.Execute("test -f " + quote(path))
	return err == nil
}

// ReadFile returns the file's bytes. The content crosses the text
// channel base64-encoded so binary map data survives intact.
func (c *Channel) ReadFile(path string) ([]byte, error) {
	out, err := c.Execute("base64 " + quote(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(out), ""))
	if err != nil {
		return nil, fmt.Errorf("read %s: decode: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces the file's contents with data, transported
// base64-encoded for the same reason as ReadFile.
func (c *Channel) WriteFile(path string, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	if _, err := c.Execute("echo " + quote(encoded) + " | base64 -d > " + quote(path)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (c *Channel) CopyFile(src, dst string) error {
	if _, err := c.Execute("cp " + quote(src) + " " + quote(dst)); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (c *Channel) RemoveFile(path string) error {
	if _, err := c.Execute("rm -f " + quote(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// RemoveDir deletes a directory and everything under it.
func (c *Channel) RemoveDir(path string) error {
	if _, err := c.Execute("rm -rf " + quote(path)); err != nil {
		return fmt.Errorf("remove dir %s: %w", path, err)
	}
	return nil
}

func (c *Channel) MkdirAll(path string) error {
	if _, err := c.Execute("mkdir -p " + quote(path)); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// ListDir returns the entry names directly under path. A missing
// directory returns an empty list rather than an error.
func (c *Channel) ListDir(path string) ([]string, error) {
	out, err := c.Execute("ls -1 " + quote(path) + " 2>/dev/null || true")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// quote wraps s in single quotes, escaping embedded single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

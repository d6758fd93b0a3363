// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a)
	w.Write([]byte("one "))
	w.Add(&b)
	n, err := w.Write([]byte("two"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 bytes written, got %d", n)
	}
	if a.String() != "one two" {
		t.Errorf("Unexpected output a: '%s'", a.String())
	}
	if b.String() != "two" {
		t.Errorf("Unexpected output b: '%s'", b.String())
	}
}

func TestMultiWriterContinuesOnError(t *testing.T) {
	var a bytes.Buffer
	w := NewMultiWriter(failingWriter{}, &a)
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("Expected error")
	}
	if a.String() != "x" {
		t.Errorf("Expected second writer to receive output, got '%s'", a.String())
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motor.log")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.WriteString("hello\n")
	f.Close()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello\n" {
		t.Errorf("Unexpected content '%s'", content)
	}
}

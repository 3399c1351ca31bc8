package wire

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineThenReadLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, "CREATE doc1"))
	line, err := ReadLine(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "CREATE doc1", line)
}

func TestReadLineReportsCleanEOF(t *testing.T) {
	_, err := ReadLine(bufio.NewReader(bytes.NewReader(nil)))
	assert.Equal(t, io.EOF, err)
}

func TestReadLineTrimsCRLF(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("ACK_REG\r\n"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "ACK_REG", line)
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"ADDACCESS", "-R", "doc1", "bob"}, Fields("ADDACCESS  -R doc1 bob"))
}

func TestAck(t *testing.T) {
	assert.Equal(t, "ACK_CREATE", Ack(VerbCreate))
	assert.Equal(t, "ACK_EMPTYTRASH 3", Ack(VerbEmptyTrash, "3"))
}

func TestRedirect(t *testing.T) {
	assert.Equal(t, "ACK_READ 127.0.0.1 9000", Redirect(VerbRead, "127.0.0.1", "9000"))
}

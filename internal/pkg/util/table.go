package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/RichardKnop/aerodb/internal/storage"
)

const (
	truncatedStringEnd = " ..."
	int32Length        = 12
	maxLength          = 40
)

func PrintTableHeader(w io.Writer, fields []storage.Field) {
	fieldSize, tableWidth := computeTableSize(fields)

	// add top horizontal header
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))

	for i, aField := range fields {
		// pad with fieldSize[i] spaces on the right rather than the left (left-justify the field)
		// an asterisk * in the format specifies that the padding size should be given as an argument
		fmt.Fprintf(w, "| %-*s ", fieldSize[i], any(aField.Name))
		// new line after last cell in a row
		if i == len(fields)-1 {
			fmt.Fprintf(w, "|\n")
		}
	}

	// add horizontal border bellow the header row
	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
}

func PrintTableRow(w io.Writer, fields []storage.Field, values []any) {
	fieldSize, _ := computeTableSize(fields)

	for i, aValue := range values {
		aStringValue := fmt.Sprint(aValue)
		r := []rune(aStringValue)
		if len(r) > fieldSize[i] {
			aStringValue = string(r[0:fieldSize[i]-len(truncatedStringEnd)]) + truncatedStringEnd
		}
		fmt.Fprintf(w, "| %-*s ", fieldSize[i], aStringValue)
	}
	fmt.Fprintf(w, "|\n")
}

func PrintTableEnd(w io.Writer, fields []storage.Field) {
	_, tableWidth := computeTableSize(fields)

	fmt.Fprintf(w, "+%s+\n", strings.Repeat("-", tableWidth-2))
}

func computeTableSize(fields []storage.Field) ([]int, int) {
	// find max width for each field
	fieldSize := make([]int, len(fields))
	for i, aField := range fields {
		if aField.Type == storage.UTF8String {
			fieldSize[i] = maxLength
		} else {
			fieldSize[i] = int32Length
		}
		if len(aField.Name) > fieldSize[i] {
			fieldSize[i] = len(aField.Name)
		}
	}

	// left border is | followed by a space, right border is space followed by | (2+2=4)
	// then between each field we have space, |, space (3)
	tableWidth := 4 + (len(fieldSize)-1)*3
	for _, fieldWidth := range fieldSize {
		tableWidth += fieldWidth
	}

	return fieldSize, tableWidth
}

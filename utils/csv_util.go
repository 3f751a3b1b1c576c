package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadCsv 读取csv，第一行是表头
func ReadCsv(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrOpenCsv, path, err)
	}
	defer f.Close()
	return readCsv(csv.NewReader(f))
}

// readCsv 返回表头和记录
func readCsv(reader *csv.Reader) ([]string, [][]string, error) {
	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrReadCsv, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", ErrReadCsv, len(records)+2, err)
		}
		records = append(records, record)
	}
	return headers, records, nil
}

// WriteCsv data的第一行作为表头写入
func WriteCsv(path string, data [][]string) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteCsv, path, err)
	}
	defer csvFile.Close()

	writer := csv.NewWriter(csvFile)
	if err = writer.WriteAll(data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteCsv, path, err)
	}
	return nil
}

// IsNumericColumn 该列所有值都能解析为有限浮点数
func IsNumericColumn(records [][]string, index int) bool {
	if len(records) == 0 {
		return false
	}
	for _, record := range records {
		if index >= len(record) {
			return false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(record[index]), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/protodb/protodb/pkg/wal"
	"github.com/spf13/cobra"
)

var inspectWALCmd = &cobra.Command{
	Use:   "inspect-wal <file.wal>",
	Short: "Dump every record in a single WAL file (offset, kind, length, CRC)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := wal.NewReader(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer reader.Close()

		offset := int64(0)
		count := 0
		for {
			record, err := reader.ReadNext()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fmt.Printf("offset=%d: corrupt record: %v\n", offset, err)
				break
			}
			fmt.Printf("offset=%-10d kind=%-24s len=%-8d crc32=%08x\n",
				offset, record.Header.Kind, record.Header.PayloadLen, record.Header.CRC32)
			offset += int64(wal.HeaderSize) + int64(record.Header.PayloadLen)
			wal.ReleaseRecord(record)
			count++
		}
		fmt.Printf("-- %d record%s, %d bytes\n", count, plural(count), offset)
		return nil
	},
}

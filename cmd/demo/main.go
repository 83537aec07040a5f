// Command demo wires a disk manager, buffer pool, and B+Tree index
// together, inserts a run of keys (forcing a few splits at the demo's
// small max sizes), and prints the resulting tree.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/afero"

	"pagedb"
	"pagedb/io"
	"pagedb/storage"
)

func main() {
	cfg := pagedb.DefaultConfig()

	disk, err := io.NewDiskManager(afero.NewOsFs(), "db_files/dbtest_2")
	if err != nil {
		fmt.Fprintln(os.Stderr, "open disk manager:", err)
		os.Exit(1)
	}
	defer disk.Close()

	engine := pagedb.Open(cfg, disk)
	defer engine.Close()

	tree, err := engine.OpenIndex("primary")
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}

	for i := int64(1); i <= 9; i++ {
		key := 100 + i
		ok, err := tree.Insert(key, storage.RecordID{PageID: int32(rand.Intn(59)), SlotNum: 0})
		if err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
		fmt.Printf("inserted %d (ok=%v)\n", key, ok)
		if err := tree.PrettyPrint(); err != nil {
			fmt.Fprintln(os.Stderr, "pretty print:", err)
			os.Exit(1)
		}
	}
}

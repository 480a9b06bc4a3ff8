package termblock_test

import (
	"fmt"

	tb "github.com/rawbytedev/termblock"
	"github.com/rawbytedev/termblock/pkg/filter"
	"github.com/rawbytedev/termblock/pkg/view"
)

func Example() {
	buf := tb.Encode([]tb.Term{
		{DocID: 1, FieldMask: tb.Mask{Lo: 0b001}, Frequency: 5},
		{DocID: 2, FieldMask: tb.Mask{Lo: 0b010}, Frequency: 7},
		{DocID: 3, FieldMask: tb.Mask{Lo: 0b011}, Frequency: 9},
	})
	blk, err := view.New(buf)
	if err != nil {
		panic(err)
	}
	q := filter.NewQuery(tb.Mask{Lo: 0b001})
	q.Fields = filter.DocID | filter.Frequency
	for _, r := range filter.Read(blk, q) {
		fmt.Println(r.DocID, r.Frequency)
	}
	// Output:
	// 1 5
	// 3 9
}

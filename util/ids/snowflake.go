package ids

import (
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/t2bot/discord-chat-archiver/util"
)

// Discord ids are snowflakes with a custom epoch of 2015-01-01T00:00:00Z.
const discordEpochMillis = 1420070400000

func GetMachineId() int64 {
	if val, ok := os.LookupEnv("MACHINE_ID"); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

var sfnode *snowflake.Node

func makeSnowflake() (*snowflake.Node, error) {
	if sfnode != nil {
		return sfnode, nil
	}
	node, err := snowflake.NewNode(GetMachineId())
	if err != nil {
		return nil, err
	}
	sfnode = node
	return sfnode, nil
}

// NewJobId generates an identifier used to correlate all log lines of one
// export job.
func NewJobId() (string, error) {
	node, err := makeSnowflake()
	if err != nil {
		return "", err
	}
	return node.Generate().String(), nil
}

// MessageIdTime extracts the creation time embedded in a message id. Returns
// false for ids that aren't parseable as snowflakes.
func MessageIdTime(id string) (time.Time, bool) {
	raw, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	millis := int64(raw>>22) + discordEpochMillis
	return util.FromMillis(millis), true
}

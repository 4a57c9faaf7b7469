package util

import (
	log "github.com/sirupsen/logrus"
	"strconv"
	"strings"
)

/**
 * This util method parses a string int list like "1,2,3,4" into the
 * project id slice the runners fan out over.
 * Input : *string -> "1,2,3,4"
 * Output: []int64 -> [1, 2, 3, 4]
 */
func GetInt64ListFromStringList(intListSepByComma *string) []int64 {

	stringList := strings.Split(*intListSepByComma, ",")
	ids := make([]int64, 0, len(stringList))
	for _, pid := range stringList {
		pid = strings.TrimSpace(pid)
		if pid == "" {
			continue
		}
		if pidInt, err := strconv.ParseInt(pid, 10, 64); err == nil {
			ids = append(ids, pidInt)
		} else {
			log.WithError(err).Errorln("Failed to parse provided string list", intListSepByComma)
			panic(err)
		}
	}
	return ids
}

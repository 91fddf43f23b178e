package utils

const (
	UpvoteWeight   = 10
	DownvoteWeight = 5
)

// ProductPoints 产品分数只由投票集合推导，不落库
func ProductPoints(upvotes, downvotes int64) int64 {
	return upvotes*UpvoteWeight - downvotes*DownvoteWeight
}

package fixadapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// sign computes the Logon HMAC signature the way Coinbase Prime's FIX
// gateway expects it: base64(hmac_sha256(secret, "ts\x01msgType\x01seqNum\x01apiKey\x01targetCompId\x01passphrase")).
func sign(ts, msgType, seqNum, apiKey, targetCompId, passphrase, apiSecret string) string {
	payload := strings.Join([]string{ts, msgType, seqNum, apiKey, targetCompId, passphrase}, "\x01")
	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

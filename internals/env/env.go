package env

import (
	"log"
	"strconv"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
)

type EnvStruct struct {
	HOME        string `zog:"HOME"`
	API_URL     string `zog:"WEST_API_URL"`
	API_TOKEN   string `zog:"WEST_API_TOKEN"`
	STUB_PORT   int    `zog:"WEST_STUB_PORT"`
	LISTEN_ADDR string
	STUB_URL    string
}

var env *EnvStruct

var EnvSchema = z.Struct(z.Shape{
	"HOME":      z.String(),
	"API_URL":   z.String().Optional(),
	"API_TOKEN": z.String().Optional(),
	"STUB_PORT": z.Int().Default(8764),
})

func Get() *EnvStruct {
	if env == nil {
		env = &EnvStruct{}
		errs := EnvSchema.Parse(zenv.NewDataProvider(), env)
		if errs != nil {
			log.Fatal("[westctl] Failed to parse environment variables", errs)
		}

		env.LISTEN_ADDR = "localhost:" + strconv.Itoa(env.STUB_PORT)
		env.STUB_URL = "http://" + env.LISTEN_ADDR
	}
	return env
}
